package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/distance"
	"github.com/hupe1980/omacluster/modeio"
)

// Config is the CLI configuration.
type Config struct {
	Algorithm   string           `mapstructure:"algorithm"`
	Metric      string           `mapstructure:"metric"`
	Workers     int              `mapstructure:"workers"`
	Concurrency int              `mapstructure:"concurrency"`
	DBSCAN      DBSCANConfig     `mapstructure:"dbscan"`
	HDBSCAN     HDBSCANConfig    `mapstructure:"hdbscan"`
	Preprocess  PreprocessConfig `mapstructure:"preprocess"`
	Filter      FilterConfig     `mapstructure:"filter"`
	Input       InputConfig      `mapstructure:"input"`
	Output      OutputConfig     `mapstructure:"output"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Registry    RegistryConfig   `mapstructure:"registry"`
	Log         LogConfig        `mapstructure:"log"`
}

type DBSCANConfig struct {
	Eps        float64 `mapstructure:"eps"`
	MinSamples int     `mapstructure:"min_samples"`
}

type HDBSCANConfig struct {
	MinClusterSize int `mapstructure:"min_cluster_size"`
	MinSamples     int `mapstructure:"min_samples"`
}

type PreprocessConfig struct {
	Columns        []string           `mapstructure:"columns"`
	Multipliers    map[string]float64 `mapstructure:"multipliers"`
	IndexDivider   float64            `mapstructure:"index_divider"`
	IndexColumn    string             `mapstructure:"index_column"`
	TimeAxis       float64            `mapstructure:"time_axis"`
	FrequencyRange []float64          `mapstructure:"frequency_range"`
	Prefilter      bool               `mapstructure:"prefilter"`
}

type FilterConfig struct {
	MinClusterSize int     `mapstructure:"min_cluster_size"`
	MinSize        float64 `mapstructure:"min_size"`
	MaxDamping     float64 `mapstructure:"max_damping"`
	DropNoise      bool    `mapstructure:"drop_noise"`
	CompactLabels  bool    `mapstructure:"compact_labels"`
}

type InputConfig struct {
	IndexColumn string `mapstructure:"index_column"`
}

type OutputConfig struct {
	// Dir is a local directory or object store URI. Empty means next to the input.
	Dir string `mapstructure:"dir"`
	// Summaries is "json", "yaml" or "" to skip summary documents.
	Summaries string `mapstructure:"summaries"`
	// IndexColumn names the written index column. Empty means input.index_column.
	IndexColumn string `mapstructure:"index_column"`
	// TimeLayout writes the index as timestamps: rfc3339, rfc3339nano,
	// datetime, date or a Go layout. Empty writes Unix seconds.
	TimeLayout string `mapstructure:"time_layout"`
}

type StorageConfig struct {
	S3Region       string `mapstructure:"s3_region"`
	S3Endpoint     string `mapstructure:"s3_endpoint"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioSecure    bool   `mapstructure:"minio_secure"`
}

type RegistryConfig struct {
	// Dir publishes mode sets as documents under a local path or URI.
	Dir string `mapstructure:"dir"`
	// DynamoDBTable publishes mode sets to DynamoDB when set.
	DynamoDBTable   string  `mapstructure:"dynamodb_table"`
	WritesPerSecond float64 `mapstructure:"writes_per_second"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // auto, text or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("algorithm", "dbscan")
	v.SetDefault("metric", distance.MetricEuclidean.String())
	v.SetDefault("workers", 0)
	v.SetDefault("concurrency", 4)

	v.SetDefault("dbscan.eps", omacluster.DefaultEps)
	v.SetDefault("dbscan.min_samples", omacluster.DefaultMinSamples)
	v.SetDefault("hdbscan.min_cluster_size", omacluster.DefaultMinClusterSize)
	v.SetDefault("hdbscan.min_samples", 0)

	v.SetDefault("filter.min_cluster_size", omacluster.DefaultPredictMinClusterSize)
	v.SetDefault("filter.min_size", omacluster.DefaultMinSize)
	v.SetDefault("filter.max_damping", omacluster.DefaultMaxDamping)

	v.SetDefault("input.index_column", omacluster.IndexColumn)
	v.SetDefault("output.summaries", "json")
	v.SetDefault("output.index_column", "")
	v.SetDefault("output.time_layout", "")

	v.SetDefault("registry.writes_per_second", 25)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// loadConfig reads file (or omacluster.yaml from the search path), the
// environment and bound flags into a Config.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName("omacluster")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("OMACLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Algorithm {
	case "dbscan", "hdbscan":
	default:
		return fmt.Errorf("unknown algorithm %q", c.Algorithm)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if n := len(c.Preprocess.FrequencyRange); n != 0 && n != 2 {
		return fmt.Errorf("frequency_range needs two values, got %d", n)
	}
	switch c.Output.Summaries {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("unknown summaries format %q", c.Output.Summaries)
	}
	return nil
}

func (c *Config) writeOptions() modeio.WriteOptions {
	index := c.Output.IndexColumn
	if index == "" {
		index = c.Input.IndexColumn
	}
	return modeio.WriteOptions{
		IndexColumn: index,
		TimeLayout:  modeio.TimeLayout(c.Output.TimeLayout),
	}
}

// builder translates the configuration into a clusterer builder. Validation
// of the clustering parameters is left to Build.
func (c *Config) builder() (omacluster.Builder, error) {
	metric, err := distance.ParseMetric(c.Metric)
	if err != nil {
		return omacluster.Builder{}, err
	}

	var b omacluster.Builder
	if c.Algorithm == "hdbscan" {
		b = omacluster.HDBSCAN(c.HDBSCAN.MinClusterSize).MinSamples(c.HDBSCAN.MinSamples)
	} else {
		b = omacluster.DBSCAN(c.DBSCAN.Eps, c.DBSCAN.MinSamples)
	}

	b = b.Metric(metric).
		MinSize(c.Filter.MinSize).
		MaxDamping(c.Filter.MaxDamping).
		TimeAxis(c.Preprocess.TimeAxis).
		Prefilter(c.Preprocess.Prefilter).
		Workers(c.Workers)

	// Nested defaults would be merged into user maps by viper, so the library
	// defaults apply only when nothing is configured.
	if len(c.Preprocess.Columns) > 0 {
		b = b.Columns(c.Preprocess.Columns...)
	}
	if c.Preprocess.Multipliers != nil {
		b = b.Multipliers(c.Preprocess.Multipliers)
	}
	if c.Preprocess.IndexDivider != 0 {
		b = b.IndexDivider(c.Preprocess.IndexDivider)
	}
	if c.Preprocess.IndexColumn != "" {
		b = b.Options(omacluster.WithIndexColumn(c.Preprocess.IndexColumn))
	}
	if r := c.Preprocess.FrequencyRange; len(r) == 2 {
		b = b.FrequencyRange(r[0], r[1])
	}
	return b, nil
}

// logger picks text output for terminals and JSON otherwise unless the format
// is forced.
func (c *Config) logger() (*omacluster.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	format := c.Log.Format
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal(os.Stderr) {
			format = "text"
		}
	}

	switch format {
	case "json":
		return omacluster.NewJSONLogger(level), nil
	case "text":
		return omacluster.NewTextLogger(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
