package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/omacluster"
)

// app carries the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
	logger  *omacluster.Logger

	flagKeys map[string]*pflag.Flag
}

// bind maps config keys to flags; a flag only overrides the key when it was
// set on the command line.
func (a *app) bind(keys map[string]string, fs *pflag.FlagSet) {
	for key, name := range keys {
		a.flagKeys[key] = fs.Lookup(name)
	}
}

func (a *app) load() error {
	for key, flag := range a.flagKeys {
		if flag != nil && flag.Changed {
			if err := a.v.BindPFlag(key, flag); err != nil {
				return err
			}
		}
	}

	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := cfg.logger()
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func newRootCmd(version string) *cobra.Command {
	a := &app{
		v:        viper.New(),
		flagKeys: make(map[string]*pflag.Flag),
	}

	root := &cobra.Command{
		Use:   "omacluster",
		Short: "Cluster operational modal analysis results into stable modes",
		Long: `omacluster groups identified modes (frequency, damping, mode shape size)
from long monitoring campaigns into clusters of physically consistent modes
with DBSCAN or HDBSCAN, and keeps the clusters that are large and stable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./omacluster.yaml or $HOME/omacluster.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: auto, text or json")
	pf.Int("workers", 0, "parallelism of distance computations per input (0 = all CPUs)")

	a.bind(map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
		"workers":    "workers",
	}, pf)

	root.AddCommand(newClusterCmd(a), newVersionCmd(version))
	return root
}
