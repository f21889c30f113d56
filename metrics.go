package omacluster

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    fitHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordFit(rows, retained int, duration time.Duration, err error) {
//	    p.fitHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordFit is called after each fit. rows is the input size, retained
	// the number of rows that reached the clustering step.
	RecordFit(rows, retained int, duration time.Duration, err error)

	// RecordPredict is called after each predict. kept is the number of
	// returned rows.
	RecordPredict(kept int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFit(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordPredict(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FitCount          atomic.Int64
	FitErrors         atomic.Int64
	FitRows           atomic.Int64
	FitRetained       atomic.Int64
	FitTotalNanos     atomic.Int64
	PredictCount      atomic.Int64
	PredictErrors     atomic.Int64
	PredictKept       atomic.Int64
	PredictTotalNanos atomic.Int64
}

// RecordFit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFit(rows, retained int, duration time.Duration, err error) {
	b.FitCount.Add(1)
	b.FitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FitErrors.Add(1)
		return
	}
	b.FitRows.Add(int64(rows))
	b.FitRetained.Add(int64(retained))
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(kept int, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PredictErrors.Add(1)
		return
	}
	b.PredictKept.Add(int64(kept))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FitCount:        b.FitCount.Load(),
		FitErrors:       b.FitErrors.Load(),
		FitRows:         b.FitRows.Load(),
		FitRetained:     b.FitRetained.Load(),
		FitAvgNanos:     avg(b.FitTotalNanos.Load(), b.FitCount.Load()),
		PredictCount:    b.PredictCount.Load(),
		PredictErrors:   b.PredictErrors.Load(),
		PredictKept:     b.PredictKept.Load(),
		PredictAvgNanos: avg(b.PredictTotalNanos.Load(), b.PredictCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FitCount        int64
	FitErrors       int64
	FitRows         int64
	FitRetained     int64
	FitAvgNanos     int64
	PredictCount    int64
	PredictErrors   int64
	PredictKept     int64
	PredictAvgNanos int64
}
