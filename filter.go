package omacluster

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/omacluster/internal/conv"
)

// group is the set of rows sharing one label.
type group struct {
	label       int
	members     *roaring.Bitmap
	count       int
	meanDamping float64
	meanSize    float64
}

// groupRows partitions a labeled table by label. Groups are ordered by label,
// Noise first.
func groupRows(t *Table, schema columnSchema) ([]group, error) {
	byLabel := make(map[int]*roaring.Bitmap)
	for i, l := range t.labels {
		row, err := conv.IntToUint32(i)
		if err != nil {
			return nil, &DataError{Reason: "table too large", cause: err}
		}
		bm, ok := byLabel[l]
		if !ok {
			bm = roaring.New()
			byLabel[l] = bm
		}
		bm.Add(row)
	}

	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	damping, size := t.column(schema.damping), t.column(schema.size)
	groups := make([]group, 0, len(labels))
	for _, l := range labels {
		members := byLabel[l]
		count, err := conv.Uint64ToInt(members.GetCardinality())
		if err != nil {
			return nil, &DataError{Reason: "group too large", cause: err}
		}
		groups = append(groups, group{
			label:       l,
			members:     members,
			count:       count,
			meanDamping: stat.Mean(gather(damping, members), nil),
			meanSize:    stat.Mean(gather(size, members), nil),
		})
	}
	return groups, nil
}

// keep reports whether the group passes the cluster filter.
func (g group) keep(minClusterSize int, maxDamping, minSize float64) bool {
	return g.count >= minClusterSize && g.meanDamping <= maxDamping && g.meanSize >= minSize
}

// filterGroups returns the groups that pass the filter.
func filterGroups(groups []group, minClusterSize int, cfg Config) []group {
	out := make([]group, 0, len(groups))
	for _, g := range groups {
		if g.keep(minClusterSize, cfg.MaxDamping, cfg.MinSize) {
			out = append(out, g)
		}
	}
	return out
}

// union returns the row positions of all groups in ascending order.
func union(groups []group) []int {
	bm := roaring.New()
	for _, g := range groups {
		bm.Or(g.members)
	}
	rows := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		rows = append(rows, int(it.Next()))
	}
	return rows
}

func gather(col []float64, members *roaring.Bitmap) []float64 {
	out := make([]float64, 0, members.GetCardinality())
	it := members.Iterator()
	for it.HasNext() {
		out = append(out, col[it.Next()])
	}
	return out
}
