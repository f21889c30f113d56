package omacluster

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stat describes the distribution of one mode parameter within a cluster.
type Stat struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	Std    float64 `json:"std" yaml:"std"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// ClusterSummary holds the representative parameters of one surviving cluster.
type ClusterSummary struct {
	Label      int     `json:"label" yaml:"label"`
	Count      int     `json:"count" yaml:"count"`
	Frequency  Stat    `json:"frequency" yaml:"frequency"`
	Damping    Stat    `json:"damping" yaml:"damping"`
	Size       Stat    `json:"size" yaml:"size"`
	FirstIndex float64 `json:"first_index" yaml:"first_index"`
	LastIndex  float64 `json:"last_index" yaml:"last_index"`

	// Members holds the row positions of the cluster within the fitted table.
	Members *roaring.Bitmap `json:"-" yaml:"-"`
}

func describe(values []float64) Stat {
	if len(values) == 0 {
		return Stat{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := Stat{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
	}
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}

func summarize(t *Table, schema columnSchema, g group) ClusterSummary {
	first, last := g.members.Minimum(), g.members.Maximum()
	return ClusterSummary{
		Label:      g.label,
		Count:      g.count,
		Frequency:  describe(gather(t.column(schema.frequency), g.members)),
		Damping:    describe(gather(t.column(schema.damping), g.members)),
		Size:       describe(gather(t.column(schema.size), g.members)),
		FirstIndex: t.index[first],
		LastIndex:  t.index[last],
		Members:    g.members.Clone(),
	}
}
