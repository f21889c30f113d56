package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/omacluster"
)

func BenchmarkFit_DBSCAN(b *testing.B) {
	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			benchmarkFit(b, campaign(b, size.n), omacluster.DBSCAN(2, 10))
		})
	}
}

func BenchmarkFit_HDBSCAN(b *testing.B) {
	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			benchmarkFit(b, campaign(b, size.n), omacluster.HDBSCAN(50).MinSamples(10))
		})
	}
}

func BenchmarkFit_DBSCAN_Workers(b *testing.B) {
	t := campaign(b, 5_000)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			benchmarkFit(b, t, omacluster.DBSCAN(2, 10).Workers(workers))
		})
	}
}

func BenchmarkFit_Subsampled(b *testing.B) {
	benchmarkFit(b, campaign(b, 5_000), omacluster.HDBSCAN(20).MinSamples(10).IndexDivider(4))
}

func benchmarkFit(b *testing.B, t *omacluster.Table, builder omacluster.Builder) {
	b.ReportAllocs()

	metrics := &omacluster.BasicMetricsCollector{}
	c, err := builder.Metrics(metrics).Build()
	if err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Fit(ctx, t); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	stats := metrics.GetStats()
	b.ReportMetric(float64(stats.FitRetained)/float64(stats.FitCount), "rows/fit")
}

func BenchmarkPredict(b *testing.B) {
	b.ReportAllocs()

	c, err := omacluster.NewDBSCAN(2, 10, omacluster.WithMaxDamping(5))
	if err != nil {
		b.Fatal(err)
	}
	if err := c.Fit(context.Background(), campaign(b, 5_000)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Predict(200); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSummaries(b *testing.B) {
	b.ReportAllocs()

	c, err := omacluster.NewDBSCAN(2, 10)
	if err != nil {
		b.Fatal(err)
	}
	if err := c.Fit(context.Background(), campaign(b, 5_000)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Summaries(200); err != nil {
			b.Fatal(err)
		}
	}
}
