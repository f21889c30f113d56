package omacluster

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/omacluster/distance"
	"github.com/hupe1980/omacluster/internal/dbscan"
)

func TestApplyOptions_Defaults(t *testing.T) {
	cfg, err := applyOptions(nil).config()
	require.NoError(t, err)

	assert.Equal(t, DefaultColumns(), cfg.Columns)
	assert.Equal(t, DefaultMultipliers(), cfg.Multipliers)
	assert.Equal(t, DefaultMinSize, cfg.MinSize)
	assert.Equal(t, DefaultMaxDamping, cfg.MaxDamping)
	assert.Equal(t, distance.MetricEuclidean, cfg.Metric)
	assert.Zero(t, cfg.IndexDivider)
	assert.Zero(t, cfg.TimeAxis)
	assert.Nil(t, cfg.FrequencyRange)
	assert.False(t, cfg.Prefilter)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		field string
	}{
		{
			name:  "multiplier outside columns",
			opts:  []Option{WithColumns("frequency", "size"), WithMultipliers(map[string]float64{"frequency": 35, "damping": 1})},
			field: "multipliers",
		},
		{"no columns", []Option{WithColumns()}, "columns"},
		{"duplicate column", []Option{WithColumns("a", "a"), WithMultipliers(nil)}, "columns"},
		{"empty column", []Option{WithColumns(""), WithMultipliers(nil)}, "columns"},
		{"infinite multiplier", []Option{WithMultipliers(map[string]float64{"size": math.Inf(1)})}, "multipliers"},
		{"zero index divider", []Option{WithIndexDivider(0)}, "index_divider"},
		{"negative index divider", []Option{WithIndexDivider(-3)}, "index_divider"},
		{"negative time axis", []Option{WithTimeAxis(-1)}, "time_axis"},
		{"inverted frequency range", []Option{WithFrequencyRange(5, 1)}, "frequency_range"},
		{"nan min size", []Option{WithMinSize(math.NaN())}, "min_size"},
		{"nan max damping", []Option{WithMaxDamping(math.NaN())}, "max_damping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyOptions(tt.opts).config()
			require.ErrorIs(t, err, ErrConfiguration)

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestOptions_CopyInputs(t *testing.T) {
	m := map[string]float64{"frequency": 1}
	cols := []string{"frequency"}
	o := applyOptions([]Option{WithMultipliers(m), WithColumns(cols...), nil})
	m["frequency"] = 2
	cols[0] = "other"

	cfg, err := o.config()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"frequency": 1}, cfg.Multipliers)
	assert.Equal(t, []string{"frequency"}, cfg.Columns)

	clone := cfg.clone()
	clone.Multipliers["frequency"] = 3
	clone.Columns[0] = "x"
	assert.Equal(t, 1.0, cfg.Multipliers["frequency"])
	assert.Equal(t, "frequency", cfg.Columns[0])
}

func TestOptions_NilCollaborators(t *testing.T) {
	o := applyOptions([]Option{WithLogger(nil), WithMetricsCollector(nil)})
	assert.NotNil(t, o.logger)
	assert.Equal(t, NoopMetricsCollector{}, o.metricsCollector)
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))

	err := translateError(dbscan.ErrInvalidEps)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, dbscan.ErrInvalidEps)

	other := errors.New("boom")
	assert.Same(t, other, translateError(other))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `invalid configuration: eps: must be positive`, (&ConfigurationError{Field: "eps", Reason: "must be positive"}).Error())
	assert.Equal(t, `schema error: column "size": missing`, (&SchemaError{Column: "size", Reason: "missing"}).Error())
	assert.Equal(t, `data error: empty`, (&DataError{Reason: "empty"}).Error())
	assert.Equal(t, `state error: predict called before a successful fit`, (&StateError{Op: "predict"}).Error())

	assert.NotErrorIs(t, &SchemaError{}, ErrData)
	assert.NotErrorIs(t, &StateError{}, ErrConfiguration)
}
