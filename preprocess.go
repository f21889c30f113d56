package omacluster

import (
	"fmt"
	"math"
)

// columnSchema holds the resolved physical columns of a fitted table.
type columnSchema struct {
	frequency string // empty when the table has no frequency column
	damping   string
	size      string
}

// prepared is the result of preprocessing: the retained unscaled rows and the
// row-aligned feature matrix.
type prepared struct {
	table    *Table
	features [][]float64
	schema   columnSchema
}

// requireNumeric reports a SchemaError unless name is a numeric column of t.
func requireNumeric(t *Table, name, missing string) error {
	switch {
	case t.IsText(name):
		return &SchemaError{Column: name, Reason: "not numeric"}
	case !t.Has(name):
		return &SchemaError{Column: name, Reason: missing}
	}
	return nil
}

func resolveColumn(t *Table, configured string, candidates ...string) (string, error) {
	if configured != "" {
		if err := requireNumeric(t, configured, "missing"); err != nil {
			return "", err
		}
		return configured, nil
	}
	for _, name := range candidates {
		if t.Has(name) {
			if err := requireNumeric(t, name, "missing"); err != nil {
				return "", err
			}
			return name, nil
		}
	}
	return "", &SchemaError{Column: candidates[0], Reason: fmt.Sprintf("missing (tried %v)", candidates)}
}

func resolveSchema(t *Table, cfg Config) (columnSchema, error) {
	var (
		s   columnSchema
		err error
	)
	if s.damping, err = resolveColumn(t, cfg.DampingColumn, "damping", "mean_damping"); err != nil {
		return s, err
	}
	if s.size, err = resolveColumn(t, cfg.SizeColumn, "size", "mean_size"); err != nil {
		return s, err
	}
	s.frequency, err = resolveColumn(t, cfg.FrequencyColumn, "mean_frequency", "frequency")
	if err != nil {
		if cfg.FrequencyRange != nil || cfg.FrequencyColumn != "" {
			return s, err
		}
		s.frequency = ""
	}
	return s, nil
}

// preprocess applies the row filters, subsampling, column selection and
// scaling to t. It never modifies t.
func preprocess(t *Table, cfg Config) (*prepared, error) {
	for _, name := range cfg.Columns {
		if err := requireNumeric(t, name, "clustering column missing"); err != nil {
			return nil, err
		}
	}
	schema, err := resolveSchema(t, cfg)
	if err != nil {
		return nil, err
	}

	index, err := subsampleIndex(t, cfg)
	if err != nil {
		return nil, err
	}

	rows := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rows = append(rows, i)
	}

	if r := cfg.FrequencyRange; r != nil {
		freq := t.column(schema.frequency)
		rows = keepRows(rows, func(i int) bool {
			return freq[i] >= r[0] && freq[i] <= r[1]
		})
	}

	if cfg.Prefilter {
		size, damping := t.column(schema.size), t.column(schema.damping)
		rows = keepRows(rows, func(i int) bool {
			return size[i] > cfg.MinSize && damping[i] < cfg.MaxDamping
		})
	}

	if cfg.IndexDivider > 0 {
		rows = subsample(rows, index, cfg.IndexDivider)
	}

	retained := t.take(rows)
	features, err := buildFeatures(retained, cfg)
	if err != nil {
		return nil, err
	}

	return &prepared{
		table:    retained,
		features: features,
		schema:   schema,
	}, nil
}

// subsampleIndex returns the values subsampling buckets on. The table index
// must be finite, and so must the index column when subsampling uses one.
func subsampleIndex(t *Table, cfg Config) ([]float64, error) {
	if err := checkFinite(IndexColumn, t.index); err != nil {
		return nil, err
	}
	if cfg.IndexDivider <= 0 || cfg.IndexColumn == "" {
		return t.index, nil
	}
	if err := requireNumeric(t, cfg.IndexColumn, "index column missing"); err != nil {
		return nil, err
	}
	index := t.column(cfg.IndexColumn)
	if err := checkFinite(cfg.IndexColumn, index); err != nil {
		return nil, err
	}
	return index, nil
}

func checkFinite(name string, values []float64) error {
	for i, v := range values {
		if !isFinite(v) {
			return &DataError{Reason: fmt.Sprintf("non-finite %s value %v at row %d", name, v, i)}
		}
	}
	return nil
}

func keepRows(rows []int, keep func(int) bool) []int {
	out := rows[:0]
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// subsample keeps the first row of every floor(index/divider) bucket.
func subsample(rows []int, index []float64, divider float64) []int {
	seen := make(map[float64]struct{})
	return keepRows(rows, func(i int) bool {
		bucket := math.Floor(index[i] / divider)
		if _, ok := seen[bucket]; ok {
			return false
		}
		seen[bucket] = struct{}{}
		return true
	})
}

func buildFeatures(t *Table, cfg Config) ([][]float64, error) {
	dims := len(cfg.Columns)
	if cfg.TimeAxis > 0 {
		dims++
	}

	n := t.Len()
	data := make([]float64, n*dims)
	features := make([][]float64, n)
	for i := range features {
		features[i] = data[i*dims : (i+1)*dims]
	}

	for j, name := range cfg.Columns {
		mult, ok := cfg.Multipliers[name]
		if !ok {
			mult = 1
		}
		col := t.column(name)
		for i, v := range col {
			scaled := v * mult
			if !isFinite(scaled) {
				return nil, &DataError{Reason: fmt.Sprintf("non-finite value in column %q at row %d", name, i)}
			}
			features[i][j] = scaled
		}
	}

	if cfg.TimeAxis > 0 {
		last := dims - 1
		for i := range features {
			features[i][last] = float64(i) / cfg.TimeAxis
		}
	}

	return features, nil
}
