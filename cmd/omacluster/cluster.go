package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/blobstore"
	"github.com/hupe1980/omacluster/codec"
	"github.com/hupe1980/omacluster/modeio"
	"github.com/hupe1980/omacluster/registry"
	"github.com/hupe1980/omacluster/registry/dynamodb"
)

func newClusterCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster <input>...",
		Short: "Cluster mode tables and keep the stable modes",
		Long: `Cluster reads each input mode table, clusters the modes, keeps the clusters
that pass the size, damping and count filters and writes:

  <name>.clustered.csv[.ext]   the kept rows with their labels
  <name>.modes.<json|yaml>     the cluster summaries

next to the input or into --output. Inputs are processed concurrently.

Example:
  omacluster cluster --algorithm hdbscan data/bridge-2024-05.csv.zst
  omacluster cluster --output s3://results/may s3://raw/may/*.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(cmd.Context(), app.cfg, app.logger)
			if err != nil {
				return err
			}
			return r.run(cmd.Context(), args)
		},
	}

	f := cmd.Flags()
	f.String("algorithm", "", "clustering algorithm: dbscan or hdbscan")
	f.Float64("eps", 0, "DBSCAN neighbourhood radius")
	f.Int("min-samples", 0, "DBSCAN core threshold")
	f.Int("hdbscan-min-cluster-size", 0, "HDBSCAN minimum cluster size")
	f.Int("min-cluster-size", 0, "minimum number of modes in a kept cluster")
	f.Float64("index-divider", 0, "keep one mode per index bucket of this width")
	f.Bool("drop-noise", false, "drop noise rows from the output")
	f.Bool("compact-labels", false, "renumber kept clusters 0..n-1")
	f.StringP("output", "o", "", "output directory or URI")
	f.String("summaries", "", "summary format: json, yaml or empty to skip")
	f.String("time-layout", "", "write the index as timestamps: rfc3339, datetime, date or a Go layout")
	f.Int("concurrency", 0, "number of inputs processed in parallel")

	app.bind(map[string]string{
		"algorithm":                "algorithm",
		"dbscan.eps":               "eps",
		"dbscan.min_samples":       "min-samples",
		"hdbscan.min_cluster_size": "hdbscan-min-cluster-size",
		"filter.min_cluster_size":  "min-cluster-size",
		"preprocess.index_divider": "index-divider",
		"filter.drop_noise":        "drop-noise",
		"filter.compact_labels":    "compact-labels",
		"output.dir":               "output",
		"output.summaries":         "summaries",
		"output.time_layout":       "time-layout",
		"concurrency":              "concurrency",
	}, f)

	return cmd
}

type publisher struct {
	target   string
	registry registry.Registry
}

type runner struct {
	cfg        *Config
	builder    omacluster.Builder
	logger     *omacluster.Logger
	metrics    *omacluster.BasicMetricsCollector
	stores     *stores
	publishers []publisher
	progress   bool
}

func newRunner(ctx context.Context, cfg *Config, logger *omacluster.Logger) (*runner, error) {
	b, err := cfg.builder()
	if err != nil {
		return nil, err
	}
	if _, err := b.Build(); err != nil {
		return nil, err
	}

	r := &runner{
		cfg:      cfg,
		builder:  b,
		logger:   logger,
		metrics:  &omacluster.BasicMetricsCollector{},
		stores:   newStores(cfg.Storage),
		progress: isTerminal(os.Stderr),
	}

	if cfg.Registry.Dir != "" {
		loc, err := blobstore.ParseURI(cfg.Registry.Dir)
		if err != nil {
			return nil, err
		}
		var (
			store  blobstore.Store = blobstore.NewLocalStore(loc.Key)
			prefix string
		)
		if loc.Scheme != blobstore.SchemeFile {
			if store, err = r.stores.resolve(ctx, loc); err != nil {
				return nil, err
			}
			prefix = loc.Key
		}
		c := codec.Default
		if cfg.Output.Summaries == "yaml" {
			c = codec.YAML{}
		}
		r.publishers = append(r.publishers, publisher{
			target:   loc.String(),
			registry: registry.NewBlobRegistry(store, c, prefix),
		})
	}

	if cfg.Registry.DynamoDBTable != "" {
		reg, err := dynamodb.New(ctx, cfg.Registry.DynamoDBTable, func(o *dynamodb.Options) {
			o.WritesPerSecond = cfg.Registry.WritesPerSecond
		})
		if err != nil {
			return nil, err
		}
		r.publishers = append(r.publishers, publisher{
			target:   "dynamodb://" + cfg.Registry.DynamoDBTable,
			registry: reg,
		})
	}

	return r, nil
}

func (r *runner) run(ctx context.Context, inputs []string) error {
	bar := r.newProgressBar(len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, input := range inputs {
		g.Go(func() error {
			defer bar.add()
			if err := r.process(ctx, input); err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			return nil
		})
	}
	err := g.Wait()

	stats := r.metrics.GetStats()
	r.logger.InfoContext(ctx, "run complete",
		"inputs", len(inputs),
		"fits", stats.FitCount,
		"fit_errors", stats.FitErrors,
		"rows", stats.FitRows,
		"retained", stats.FitRetained,
		"kept", stats.PredictKept,
		"avg_fit", time.Duration(stats.FitAvgNanos),
	)
	return err
}

func (r *runner) process(ctx context.Context, input string) error {
	in, err := blobstore.ParseURI(input)
	if err != nil {
		return err
	}
	store, err := r.stores.resolve(ctx, in)
	if err != nil {
		return err
	}

	source := stem(in.Key)
	log := r.logger.WithSource(source)

	t, err := modeio.Load(ctx, store, in.Key, modeio.ReadOptions{IndexColumn: r.cfg.Input.IndexColumn})
	rows := 0
	if t != nil {
		rows = t.Len()
	}
	log.LogLoad(ctx, in.String(), rows, err)
	if err != nil {
		return err
	}

	c, err := r.builder.Logger(log).Metrics(r.metrics).Build()
	if err != nil {
		return err
	}
	if err := c.Fit(ctx, t); err != nil {
		return err
	}

	mcs := r.cfg.Filter.MinClusterSize
	kept, err := c.Predict(mcs)
	if err != nil {
		return err
	}
	out := kept
	if r.cfg.Filter.DropNoise {
		out = out.WithoutNoise()
	}
	if r.cfg.Filter.CompactLabels {
		out = out.CompactLabels()
	}

	tableLoc, summaryLoc, err := outputLocations(in, r.cfg.Output.Dir, r.cfg.Output.Summaries)
	if err != nil {
		return err
	}
	outStore, err := r.stores.resolve(ctx, tableLoc)
	if err != nil {
		return err
	}
	if err := modeio.Save(ctx, outStore, tableLoc.Key, out, r.cfg.writeOptions()); err != nil {
		return err
	}

	if r.cfg.Output.Summaries == "" && len(r.publishers) == 0 {
		return nil
	}

	summaries, err := c.Summaries(mcs)
	if err != nil {
		return err
	}
	if r.cfg.Filter.CompactLabels {
		relabel(summaries, kept.Labels(), kept.CompactLabels().Labels())
	}
	set := registry.NewModeSet(source, c.Config().Algorithm, summaries)

	if r.cfg.Output.Summaries != "" {
		data, err := codec.ForExtension(summaryLoc.Key).Marshal(set)
		if err != nil {
			return err
		}
		if err := outStore.Put(ctx, summaryLoc.Key, data); err != nil {
			return err
		}
	}

	var errs []error
	for _, p := range r.publishers {
		err := p.registry.Publish(ctx, set)
		log.LogPublish(ctx, p.target, len(set.Clusters), err)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// relabel maps summary labels through the row-wise label translation
// before -> after.
func relabel(summaries []omacluster.ClusterSummary, before, after []int) {
	mapping := make(map[int]int, len(summaries))
	for i, l := range before {
		mapping[l] = after[i]
	}
	for i := range summaries {
		if l, ok := mapping[summaries[i].Label]; ok {
			summaries[i].Label = l
		}
	}
}

// stem strips the directory, a compression extension and ".csv" from key.
func stem(key string) string {
	base := path.Base(key)
	if modeio.CompressionFor(base) != modeio.None {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.TrimSuffix(base, ".csv")
}

// outputLocations returns where the clustered table and the summaries of in
// are written. An empty dir means the directory of in.
func outputLocations(in blobstore.Location, dir, format string) (table, summary blobstore.Location, err error) {
	out := in
	if dir != "" {
		out, err = blobstore.ParseURI(dir)
		if err != nil {
			return table, summary, err
		}
	} else {
		out.Key = path.Dir(in.Key)
		if out.Key == "." {
			out.Key = ""
		}
	}

	name := stem(in.Key)
	ext := ""
	if modeio.CompressionFor(in.Key) != modeio.None {
		ext = path.Ext(in.Key)
	}
	if format == "" {
		format = "json"
	}

	return out.Join(name + ".clustered.csv" + ext), out.Join(name + ".modes." + format), nil
}

type progress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (r *runner) newProgressBar(n int) *progress {
	if !r.progress || n < 2 {
		return &progress{}
	}
	return &progress{bar: progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Clustering"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *progress) add() {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Add(1)
}
