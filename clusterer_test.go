package omacluster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/distance"
	"github.com/hupe1980/omacluster/testutil"
)

func scenarioTable(t *testing.T, m testutil.Modes) *omacluster.Table {
	t.Helper()
	tbl, err := omacluster.NewTable(m.Index,
		omacluster.Column{Name: "frequency", Values: m.Frequency},
		omacluster.Column{Name: "size", Values: m.Size},
		omacluster.Column{Name: "damping", Values: m.Damping},
	)
	require.NoError(t, err)
	return tbl
}

type variant struct {
	name string
	new  func(opts ...omacluster.Option) (*omacluster.Clusterer, error)
}

var variants = []variant{
	{"dbscan", func(opts ...omacluster.Option) (*omacluster.Clusterer, error) {
		return omacluster.NewDBSCAN(2, 10, opts...)
	}},
	{"hdbscan", func(opts ...omacluster.Option) (*omacluster.Clusterer, error) {
		return omacluster.NewHDBSCAN(50, 10, opts...)
	}},
}

func TestClusterer_Scenario(t *testing.T) {
	m := testutil.Scenario(42)
	tbl := scenarioTable(t, m)

	groupA := make(map[float64]bool)
	for _, row := range m.Rows(0) {
		groupA[m.Index[row]] = true
	}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			c, err := v.new(omacluster.WithMaxDamping(5), omacluster.WithMinSize(5))
			require.NoError(t, err)
			require.NoError(t, c.Fit(context.Background(), tbl))

			out, err := c.Predict(200)
			require.NoError(t, err)
			require.Equal(t, len(groupA), out.Len())

			labels := out.Labels()
			for i := 0; i < out.Len(); i++ {
				assert.True(t, groupA[out.IndexAt(i)], "row %v is not in group A", out.IndexAt(i))
				assert.Equal(t, labels[0], labels[i])
			}
			assert.NotEqual(t, omacluster.Noise, labels[0])

			summaries, err := c.Summaries(200)
			require.NoError(t, err)
			require.Len(t, summaries, 1)
			s := summaries[0]
			assert.Equal(t, 300, s.Count)
			assert.Equal(t, uint64(300), s.Members.GetCardinality())
			assert.InDelta(t, 2, s.Frequency.Mean, 0.01)
			assert.InDelta(t, 1, s.Damping.Mean, 0.3)
			assert.InDelta(t, 10, s.Size.Mean, 1)
			assert.LessOrEqual(t, s.Frequency.Min, s.Frequency.Median)
			assert.LessOrEqual(t, s.Frequency.Median, s.Frequency.Max)
		})
	}
}

func TestClusterer_OverlappingNoise(t *testing.T) {
	m := testutil.OverlappingScenario(42)
	tbl := scenarioTable(t, m)

	// DBSCAN only takes in noise modes within reach of a core point of
	// group A. HDBSCAN labels every noise mode that is attached to group A
	// when it separates from the rest, so its cluster is larger.
	maxAbsorbed := map[string]int{"dbscan": 10, "hdbscan": 299}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			c, err := v.new(omacluster.WithMaxDamping(5), omacluster.WithMinSize(5))
			require.NoError(t, err)
			require.NoError(t, c.Fit(context.Background(), tbl))

			out, err := c.Predict(200)
			require.NoError(t, err)

			labelOf := make(map[int]int, out.Len())
			for i := 0; i < out.Len(); i++ {
				l, _ := out.LabelAt(i)
				labelOf[int(out.IndexAt(i))] = l
			}

			groupA := m.Rows(0)
			label, ok := labelOf[groupA[0]]
			require.True(t, ok)
			require.NotEqual(t, omacluster.Noise, label)
			for _, row := range groupA {
				assert.Equal(t, label, labelOf[row], "group A row %d", row)
			}
			for _, row := range m.Rows(1) {
				_, kept := labelOf[row]
				assert.False(t, kept, "group B row %d kept", row)
			}

			absorbed := 0
			for _, row := range m.Rows(-1) {
				if l, kept := labelOf[row]; kept && l == label {
					absorbed++
					if v.name == "dbscan" {
						assert.InDelta(t, 2, m.Frequency[row], 0.11)
					}
				}
			}
			assert.LessOrEqual(t, absorbed, maxAbsorbed[v.name])
			t.Logf("%s: group A cluster has %d noise modes", v.name, absorbed)
		})
	}
}

func TestClusterer_OutputRowsAreInputRows(t *testing.T) {
	m := testutil.Scenario(7)
	tbl := scenarioTable(t, m)

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			c, err := v.new()
			require.NoError(t, err)
			require.NoError(t, c.Fit(context.Background(), tbl))

			out, err := c.Predict(1)
			require.NoError(t, err)

			for i := 0; i < out.Len(); i++ {
				row := int(out.IndexAt(i))
				got := out.Record(i)
				want := tbl.Record(row)
				assert.Equal(t, want.Values, got.Values)
			}

			prev := -1.0
			for _, idx := range out.Index() {
				assert.Greater(t, idx, prev)
				prev = idx
			}
		})
	}
}

func TestClusterer_Filtering(t *testing.T) {
	m := testutil.Scenario(11)
	tbl := scenarioTable(t, m)

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			c, err := v.new(omacluster.WithMaxDamping(10), omacluster.WithMinSize(1))
			require.NoError(t, err)
			require.NoError(t, c.Fit(context.Background(), tbl))

			out, err := c.Predict(20)
			require.NoError(t, err)

			counts := map[int]int{}
			damping := map[int]float64{}
			size := map[int]float64{}
			for i := 0; i < out.Len(); i++ {
				rec := out.Record(i)
				counts[rec.Label]++
				damping[rec.Label] += rec.Values["damping"]
				size[rec.Label] += rec.Values["size"]
			}
			require.NotEmpty(t, counts)
			for l, n := range counts {
				assert.GreaterOrEqual(t, n, 20)
				assert.LessOrEqual(t, damping[l]/float64(n), 10.0)
				assert.GreaterOrEqual(t, size[l]/float64(n), 1.0)
			}
		})
	}
}

func TestClusterer_Monotonic(t *testing.T) {
	tbl := scenarioTable(t, testutil.Scenario(3))

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			c, err := v.new(omacluster.WithMaxDamping(100), omacluster.WithMinSize(0))
			require.NoError(t, err)
			require.NoError(t, c.Fit(context.Background(), tbl))

			prev := tbl.Len() + 1
			for _, k := range []int{1, 10, 100, 250, 301, 500, 1001} {
				out, err := c.Predict(k)
				require.NoError(t, err)
				assert.LessOrEqual(t, out.Len(), prev, "min cluster size %d", k)
				prev = out.Len()
			}
			assert.Equal(t, 0, prev)
		})
	}
}

func TestClusterer_Deterministic(t *testing.T) {
	tbl := scenarioTable(t, testutil.Scenario(5))

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			run := func(workers int) []int {
				c, err := v.new(omacluster.WithWorkers(workers))
				require.NoError(t, err)
				require.NoError(t, c.Fit(context.Background(), tbl))
				out, err := c.Predict(5)
				require.NoError(t, err)
				return out.Labels()
			}
			assert.Equal(t, run(1), run(4))
		})
	}
}

func TestClusterer_State(t *testing.T) {
	c, err := omacluster.NewDBSCAN(2, 10)
	require.NoError(t, err)
	assert.False(t, c.Fitted())

	_, err = c.Predict(10)
	require.ErrorIs(t, err, omacluster.ErrState)
	var se *omacluster.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "predict", se.Op)

	_, err = c.Summaries(10)
	assert.ErrorIs(t, err, omacluster.ErrState)
	_, err = c.Labels()
	assert.ErrorIs(t, err, omacluster.ErrState)
	_, err = c.Features()
	assert.ErrorIs(t, err, omacluster.ErrState)
	_, err = c.Table()
	assert.ErrorIs(t, err, omacluster.ErrState)

	tbl := scenarioTable(t, testutil.Scenario(1))
	require.NoError(t, c.Fit(context.Background(), tbl))
	assert.True(t, c.Fitted())

	_, err = c.Predict(0)
	assert.ErrorIs(t, err, omacluster.ErrConfiguration)

	features, err := c.Features()
	require.NoError(t, err)
	require.Len(t, features, tbl.Len())
	assert.Len(t, features[0], 3)

	// A failed fit discards the previous state.
	empty, err := omacluster.NewTable(nil,
		omacluster.Column{Name: "frequency"},
		omacluster.Column{Name: "size"},
		omacluster.Column{Name: "damping"},
	)
	require.NoError(t, err)
	err = c.Fit(context.Background(), empty)
	assert.ErrorIs(t, err, omacluster.ErrData)
	assert.False(t, c.Fitted())

	require.NoError(t, c.Fit(context.Background(), tbl))
	c.Reset()
	assert.False(t, c.Fitted())
}

func TestClusterer_FitErrors(t *testing.T) {
	ctx := context.Background()

	c, err := omacluster.NewHDBSCAN(5, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Fit(ctx, nil), omacluster.ErrData)

	missing, err := omacluster.NewTable([]float64{0}, omacluster.Column{Name: "frequency", Values: []float64{1}})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Fit(ctx, missing), omacluster.ErrSchema)

	filtered, err := omacluster.NewDBSCAN(2, 10, omacluster.WithFrequencyRange(100, 200))
	require.NoError(t, err)
	err = filtered.Fit(ctx, scenarioTable(t, testutil.Scenario(1)))
	assert.ErrorIs(t, err, omacluster.ErrData)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err = c.Fit(canceled, scenarioTable(t, testutil.Scenario(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConstructors(t *testing.T) {
	t.Run("multipliers outside columns", func(t *testing.T) {
		_, err := omacluster.NewDBSCAN(5, 100,
			omacluster.WithColumns("frequency", "size"),
			omacluster.WithMultipliers(map[string]float64{"frequency": 35, "damping": 1}),
		)
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)

		_, err = omacluster.NewHDBSCAN(5, 0,
			omacluster.WithColumns("frequency", "size"),
			omacluster.WithMultipliers(map[string]float64{"frequency": 35, "damping": 1}),
		)
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)
	})

	t.Run("hyperparameters", func(t *testing.T) {
		_, err := omacluster.NewDBSCAN(0, 10)
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)
		_, err = omacluster.NewDBSCAN(1, 0)
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)
		_, err = omacluster.NewHDBSCAN(1, 0)
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)
		_, err = omacluster.NewHDBSCAN(5, -1)
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)
		_, err = omacluster.NewDBSCAN(1, 1, omacluster.WithMetric(distance.Metric(99)))
		assert.ErrorIs(t, err, omacluster.ErrConfiguration)
	})

	t.Run("config", func(t *testing.T) {
		c, err := omacluster.NewHDBSCAN(7, 0, omacluster.WithMetric(distance.MetricManhattan))
		require.NoError(t, err)
		cfg := c.Config()
		assert.Equal(t, "hdbscan", cfg.Algorithm)
		assert.Equal(t, 7, cfg.MinClusterSize)
		assert.Equal(t, 7, cfg.MinSamples)
		assert.Equal(t, distance.MetricManhattan, cfg.Metric)

		cfg.Multipliers["frequency"] = 0
		assert.Equal(t, 40.0, c.Config().Multipliers["frequency"])

		d, err := omacluster.NewDBSCAN(5, 100)
		require.NoError(t, err)
		assert.Equal(t, "dbscan", d.Config().Algorithm)
		assert.Equal(t, 5.0, d.Config().Eps)
	})
}

// thresholdLabeler puts points with a first feature below the threshold into
// cluster 0 and everything else into cluster 1.
type thresholdLabeler struct {
	threshold float64
	err       error
}

func (l thresholdLabeler) Name() string { return "threshold" }

func (l thresholdLabeler) Label(_ context.Context, points [][]float64) ([]int, error) {
	if l.err != nil {
		return nil, l.err
	}
	labels := make([]int, len(points))
	for i, p := range points {
		if p[0] >= l.threshold {
			labels[i] = 1
		}
	}
	return labels, nil
}

func TestNew_CustomLabeler(t *testing.T) {
	tbl, err := omacluster.NewTable([]float64{0, 1, 2, 3, 4},
		omacluster.Column{Name: "frequency", Values: []float64{1, 1, 9, 9, 9}},
		omacluster.Column{Name: "size", Values: []float64{10, 10, 10, 10, 10}},
		omacluster.Column{Name: "damping", Values: []float64{1, 1, 1, 1, 1}},
		omacluster.Column{Name: "mac", Values: []float64{0.9, 0.8, 0.7, 0.6, 0.5}},
	)
	require.NoError(t, err)

	metrics := &omacluster.BasicMetricsCollector{}
	c, err := omacluster.New(thresholdLabeler{threshold: 200},
		omacluster.WithMetricsCollector(metrics),
		omacluster.WithLogger(omacluster.NoopLogger()),
	)
	require.NoError(t, err)
	assert.Equal(t, "threshold", c.Config().Algorithm)

	require.NoError(t, c.Fit(context.Background(), tbl))

	out, err := c.Predict(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, out.Index())
	assert.Equal(t, []int{1, 1, 1}, out.Labels())
	mac, ok := out.Column("mac")
	require.True(t, ok)
	assert.Equal(t, []float64{0.7, 0.6, 0.5}, mac)

	out, err = c.Predict(2)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
	assert.Equal(t, []int{0, 0, 1, 1, 1}, out.Labels())

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.FitCount)
	assert.Equal(t, int64(5), stats.FitRows)
	assert.Equal(t, int64(2), stats.PredictCount)
	assert.Equal(t, int64(8), stats.PredictKept)

	_, err = omacluster.New(nil)
	assert.ErrorIs(t, err, omacluster.ErrConfiguration)

	boom := errors.New("boom")
	failing, err := omacluster.New(thresholdLabeler{err: boom}, omacluster.WithMetricsCollector(metrics))
	require.NoError(t, err)
	err = failing.Fit(context.Background(), tbl)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), metrics.GetStats().FitErrors)
}

func TestClusterer_FilterBoundsAreInclusive(t *testing.T) {
	// Cluster 0 has a mean damping of exactly 3, cluster 1 a mean size of exactly 2.
	tbl, err := omacluster.NewTable([]float64{0, 1, 2, 3},
		omacluster.Column{Name: "frequency", Values: []float64{1, 1, 9, 9}},
		omacluster.Column{Name: "size", Values: []float64{5, 5, 1, 3}},
		omacluster.Column{Name: "damping", Values: []float64{2, 4, 1, 1}},
	)
	require.NoError(t, err)

	tests := []struct {
		name       string
		maxDamping float64
		minSize    float64
		want       []int
	}{
		{"both bounds met exactly", 3, 2, []int{0, 0, 1, 1}},
		{"damping above bound", 2.999, 2, []int{1, 1}},
		{"size below bound", 3, 2.001, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := omacluster.New(thresholdLabeler{threshold: 200},
				omacluster.WithMaxDamping(tt.maxDamping),
				omacluster.WithMinSize(tt.minSize),
			)
			require.NoError(t, err)
			require.NoError(t, c.Fit(context.Background(), tbl))

			out, err := c.Predict(2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Labels())
		})
	}
}

func TestClusterer_NoiseIsNeverRelabeled(t *testing.T) {
	tbl := scenarioTable(t, testutil.Scenario(9))

	c, err := omacluster.NewDBSCAN(2, 10, omacluster.WithMaxDamping(100), omacluster.WithMinSize(0))
	require.NoError(t, err)
	require.NoError(t, c.Fit(context.Background(), tbl))

	fitted, err := c.Labels()
	require.NoError(t, err)

	out, err := c.Predict(1)
	require.NoError(t, err)
	assert.Equal(t, fitted, out.Labels())
	assert.Contains(t, out.Labels(), omacluster.Noise)

	clean := out.WithoutNoise()
	assert.NotContains(t, clean.Labels(), omacluster.Noise)
	assert.Equal(t, []int{0, 1}, uniqueSorted(clean.CompactLabels().Labels()))
}

func uniqueSorted(labels []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestSummaries(t *testing.T) {
	tbl := scenarioTable(t, testutil.Scenario(13))

	c, err := omacluster.NewDBSCAN(2, 10, omacluster.WithMaxDamping(100), omacluster.WithMinSize(0))
	require.NoError(t, err)
	require.NoError(t, c.Fit(context.Background(), tbl))

	summaries, err := c.Summaries(100)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Less(t, summaries[0].Label, summaries[1].Label)
	for _, s := range summaries {
		assert.Equal(t, 300, s.Count)
		assert.NotEqual(t, omacluster.Noise, s.Label)
		assert.LessOrEqual(t, s.FirstIndex, s.LastIndex)
		assert.Positive(t, s.Frequency.Std)
	}

	noFreq, err := omacluster.NewTable(tbl.Index(),
		omacluster.Column{Name: "size", Values: mustColumn(t, tbl, "size")},
		omacluster.Column{Name: "damping", Values: mustColumn(t, tbl, "damping")},
	)
	require.NoError(t, err)
	c2, err := omacluster.NewDBSCAN(2, 10, omacluster.WithColumns("size", "damping"), omacluster.WithMultipliers(nil))
	require.NoError(t, err)
	require.NoError(t, c2.Fit(context.Background(), noFreq))
	_, err = c2.Summaries(1)
	assert.ErrorIs(t, err, omacluster.ErrSchema)
}

func mustColumn(t *testing.T, tbl *omacluster.Table, name string) []float64 {
	t.Helper()
	v, ok := tbl.Column(name)
	require.True(t, ok)
	return v
}
