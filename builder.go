package omacluster

import (
	"slices"

	"github.com/hupe1980/omacluster/distance"
)

// Builder is an immutable fluent builder for Clusterers.
// Each method returns a new builder with the updated configuration.
//
// Example:
//
//	c, err := omacluster.HDBSCAN(50).
//	    MinSamples(10).
//	    MaxDamping(5).
//	    IndexDivider(60).
//	    Build()
type Builder struct {
	algorithm      string
	eps            float64
	minSamples     int
	minClusterSize int
	opts           []Option
}

// DBSCAN creates a builder for a DBSCAN based Clusterer.
func DBSCAN(eps float64, minSamples int) Builder {
	return Builder{
		algorithm:  "dbscan",
		eps:        eps,
		minSamples: minSamples,
	}
}

// HDBSCAN creates a builder for an HDBSCAN based Clusterer. Min samples
// defaults to minClusterSize.
func HDBSCAN(minClusterSize int) Builder {
	return Builder{
		algorithm:      "hdbscan",
		minClusterSize: minClusterSize,
	}
}

// Algorithm returns "dbscan" or "hdbscan".
func (b Builder) Algorithm() string { return b.algorithm }

func (b Builder) with(o Option) Builder {
	b.opts = append(slices.Clip(b.opts), o)
	return b
}

// Eps sets the DBSCAN neighbourhood radius. Ignored by HDBSCAN.
func (b Builder) Eps(eps float64) Builder {
	b.eps = eps
	return b
}

// MinSamples sets the DBSCAN core threshold or the HDBSCAN core distance
// neighbourhood.
func (b Builder) MinSamples(n int) Builder {
	b.minSamples = n
	return b
}

// MinClusterSize sets the HDBSCAN minimum cluster size. Ignored by DBSCAN.
func (b Builder) MinClusterSize(n int) Builder {
	b.minClusterSize = n
	return b
}

// Columns sets the clustering columns.
func (b Builder) Columns(cols ...string) Builder { return b.with(WithColumns(cols...)) }

// Multipliers sets the per-column scale factors.
func (b Builder) Multipliers(m map[string]float64) Builder { return b.with(WithMultipliers(m)) }

// IndexDivider enables subsampling.
func (b Builder) IndexDivider(d float64) Builder { return b.with(WithIndexDivider(d)) }

// MinSize sets the lower bound for the mean size of a kept cluster.
func (b Builder) MinSize(v float64) Builder { return b.with(WithMinSize(v)) }

// MaxDamping sets the upper bound for the mean damping of a kept cluster.
func (b Builder) MaxDamping(v float64) Builder { return b.with(WithMaxDamping(v)) }

// Metric sets the feature space distance.
func (b Builder) Metric(m distance.Metric) Builder { return b.with(WithMetric(m)) }

// TimeAxis appends the scaled row ordinal as a feature.
func (b Builder) TimeAxis(scale float64) Builder { return b.with(WithTimeAxis(scale)) }

// FrequencyRange restricts clustering to lo <= frequency <= hi.
func (b Builder) FrequencyRange(lo, hi float64) Builder { return b.with(WithFrequencyRange(lo, hi)) }

// Prefilter drops single implausible modes before clustering.
func (b Builder) Prefilter(enabled bool) Builder { return b.with(WithPrefilter(enabled)) }

// Logger sets the structured logger for operation tracing.
func (b Builder) Logger(l *Logger) Builder { return b.with(WithLogger(l)) }

// Metrics sets the metrics collector for monitoring.
func (b Builder) Metrics(mc MetricsCollector) Builder { return b.with(WithMetricsCollector(mc)) }

// Workers bounds the parallelism of distance computations.
func (b Builder) Workers(n int) Builder { return b.with(WithWorkers(n)) }

// Options appends raw options.
func (b Builder) Options(optFns ...Option) Builder {
	b.opts = append(slices.Clip(b.opts), optFns...)
	return b
}

// Build creates the Clusterer.
func (b Builder) Build() (*Clusterer, error) {
	switch b.algorithm {
	case "dbscan":
		return NewDBSCAN(b.eps, b.minSamples, b.opts...)
	case "hdbscan":
		return NewHDBSCAN(b.minClusterSize, b.minSamples, b.opts...)
	default:
		return nil, configError("algorithm", "unknown algorithm %q", b.algorithm)
	}
}
