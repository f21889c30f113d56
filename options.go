package omacluster

import (
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/hupe1980/omacluster/distance"
)

// Defaults shared by both clustering variants.
const (
	DefaultMinSize        = 5.0
	DefaultMaxDamping     = 5.0
	DefaultEps            = 5.0
	DefaultMinSamples     = 100
	DefaultMinClusterSize = 5

	// DefaultPredictMinClusterSize is the customary Predict threshold for
	// long monitoring campaigns.
	DefaultPredictMinClusterSize = 1000
)

// DefaultColumns returns the default clustering columns.
func DefaultColumns() []string {
	return []string{"frequency", "size", "damping"}
}

// DefaultMultipliers returns the default per-column scale factors.
func DefaultMultipliers() map[string]float64 {
	return map[string]float64{
		"frequency": 40,
		"size":      0.5,
		"damping":   1,
	}
}

// Config is the immutable configuration of a Clusterer.
type Config struct {
	// Algorithm is the labeler name ("dbscan", "hdbscan" or a custom name).
	Algorithm string
	// Eps is the DBSCAN neighbourhood radius in scaled feature space.
	Eps float64
	// MinSamples is the DBSCAN core threshold or the HDBSCAN core distance
	// neighbourhood (0 means MinClusterSize).
	MinSamples int
	// MinClusterSize is the HDBSCAN minimum cluster size.
	MinClusterSize int
	Metric         distance.Metric

	Multipliers map[string]float64
	Columns     []string
	// IndexDivider enables subsampling when positive.
	IndexDivider float64
	MinSize      float64
	MaxDamping   float64

	// TimeAxis appends a row ordinal feature scaled by 1/TimeAxis when positive.
	TimeAxis float64
	// FrequencyRange keeps rows with FrequencyRange[0] <= frequency <= FrequencyRange[1].
	FrequencyRange *[2]float64
	// Prefilter drops rows with size <= MinSize or damping >= MaxDamping
	// before clustering.
	Prefilter bool

	// IndexColumn names a column used instead of the table index for
	// subsampling. Empty means the table index.
	IndexColumn     string
	FrequencyColumn string
	DampingColumn   string
	SizeColumn      string
}

func (c Config) clone() Config {
	c.Multipliers = maps.Clone(c.Multipliers)
	c.Columns = slices.Clone(c.Columns)
	if c.FrequencyRange != nil {
		r := *c.FrequencyRange
		c.FrequencyRange = &r
	}
	return c
}

func (c Config) validate() error {
	if len(c.Columns) == 0 {
		return configError("columns", "must not be empty")
	}

	seen := make(map[string]struct{}, len(c.Columns))
	for _, name := range c.Columns {
		if name == "" {
			return configError("columns", "empty column name")
		}
		if _, ok := seen[name]; ok {
			return configError("columns", "duplicate column %q", name)
		}
		seen[name] = struct{}{}
	}

	for _, key := range slices.Sorted(maps.Keys(c.Multipliers)) {
		if _, ok := seen[key]; !ok {
			return configError("multipliers", "key %q is not a clustering column %v", key, c.Columns)
		}
		if !isFinite(c.Multipliers[key]) {
			return configError("multipliers", "multiplier for %q is not finite", key)
		}
	}

	if math.IsNaN(c.IndexDivider) || c.IndexDivider < 0 || math.IsInf(c.IndexDivider, 0) {
		return configError("index_divider", "must be positive and finite")
	}
	if math.IsNaN(c.TimeAxis) || c.TimeAxis < 0 || math.IsInf(c.TimeAxis, 0) {
		return configError("time_axis", "must be positive and finite")
	}
	if math.IsNaN(c.MinSize) {
		return configError("min_size", "must not be NaN")
	}
	if math.IsNaN(c.MaxDamping) {
		return configError("max_damping", "must not be NaN")
	}
	if r := c.FrequencyRange; r != nil {
		if math.IsNaN(r[0]) || math.IsNaN(r[1]) || r[0] > r[1] {
			return configError("frequency_range", "invalid range [%g, %g]", r[0], r[1])
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type options struct {
	multipliers      map[string]float64
	columns          []string
	indexDivider     float64
	indexDividerSet  bool
	minSize          float64
	maxDamping       float64
	metric           distance.Metric
	timeAxis         float64
	frequencyRange   *[2]float64
	prefilter        bool
	indexColumn      string
	frequencyColumn  string
	dampingColumn    string
	sizeColumn       string
	logger           *Logger
	metricsCollector MetricsCollector
	workers          int
}

// Option configures a Clusterer.
type Option func(*options)

// WithMultipliers replaces the per-column scale factors. Every key must be one
// of the clustering columns; columns without a multiplier are not scaled.
func WithMultipliers(m map[string]float64) Option {
	return func(o *options) {
		o.multipliers = maps.Clone(m)
	}
}

// WithColumns replaces the clustering columns.
func WithColumns(cols ...string) Option {
	return func(o *options) {
		o.columns = slices.Clone(cols)
	}
}

// WithIndexDivider enables subsampling: of all rows whose index falls into the
// same bucket floor(index/d) only the first is kept. d must be positive.
func WithIndexDivider(d float64) Option {
	return func(o *options) {
		o.indexDivider = d
		o.indexDividerSet = true
	}
}

// WithMinSize sets the lower bound for the mean size of a kept cluster.
func WithMinSize(v float64) Option {
	return func(o *options) {
		o.minSize = v
	}
}

// WithMaxDamping sets the upper bound for the mean damping of a kept cluster.
func WithMaxDamping(v float64) Option {
	return func(o *options) {
		o.maxDamping = v
	}
}

// WithMetric selects the feature space distance.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithTimeAxis appends the row ordinal divided by scale as an extra feature,
// so that modes far apart in time separate. Zero disables it.
func WithTimeAxis(scale float64) Option {
	return func(o *options) {
		o.timeAxis = scale
	}
}

// WithFrequencyRange restricts clustering to rows with lo <= frequency <= hi.
func WithFrequencyRange(lo, hi float64) Option {
	return func(o *options) {
		o.frequencyRange = &[2]float64{lo, hi}
	}
}

// WithPrefilter drops single rows with size <= MinSize or damping >= MaxDamping
// before clustering.
func WithPrefilter(enabled bool) Option {
	return func(o *options) {
		o.prefilter = enabled
	}
}

// WithIndexColumn subsamples on the named column instead of the table index.
func WithIndexColumn(name string) Option {
	return func(o *options) {
		o.indexColumn = name
	}
}

// WithFrequencyColumn overrides frequency column detection
// ("mean_frequency", then "frequency").
func WithFrequencyColumn(name string) Option {
	return func(o *options) {
		o.frequencyColumn = name
	}
}

// WithDampingColumn overrides damping column detection ("damping", then "mean_damping").
func WithDampingColumn(name string) Option {
	return func(o *options) {
		o.dampingColumn = name
	}
}

// WithSizeColumn overrides size column detection ("size", then "mean_size").
func WithSizeColumn(name string) Option {
	return func(o *options) {
		o.sizeColumn = name
	}
}

// WithLogger sets the structured logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel enables text logging to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithWorkers bounds the parallelism of distance computations.
// Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		multipliers:      DefaultMultipliers(),
		columns:          DefaultColumns(),
		minSize:          DefaultMinSize,
		maxDamping:       DefaultMaxDamping,
		metric:           distance.MetricEuclidean,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn == nil {
			continue
		}
		fn(&o)
	}
	return o
}

func (o options) config() (Config, error) {
	if o.indexDividerSet && !(o.indexDivider > 0) {
		return Config{}, configError("index_divider", "must be positive, got %g", o.indexDivider)
	}

	cfg := Config{
		Metric:          o.metric,
		Multipliers:     maps.Clone(o.multipliers),
		Columns:         slices.Clone(o.columns),
		IndexDivider:    o.indexDivider,
		MinSize:         o.minSize,
		MaxDamping:      o.maxDamping,
		TimeAxis:        o.timeAxis,
		FrequencyRange:  o.frequencyRange,
		Prefilter:       o.prefilter,
		IndexColumn:     o.indexColumn,
		FrequencyColumn: o.frequencyColumn,
		DampingColumn:   o.dampingColumn,
		SizeColumn:      o.sizeColumn,
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
