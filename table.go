package omacluster

import (
	"fmt"
	"maps"
	"slices"
)

// Noise is the label of rows that belong to no cluster.
const Noise = -1

const (
	// IndexColumn is the name under which the table index is written.
	IndexColumn = "index"
	// LabelColumn is the name under which cluster labels are written.
	LabelColumn = "label"
)

// Column is a named column. A column with non-nil Text is a text column that
// is carried through clustering unchanged; otherwise Values holds the numbers.
type Column struct {
	Name   string
	Values []float64
	Text   []string
}

func (c Column) len() int {
	if c.Text != nil {
		return len(c.Text)
	}
	return len(c.Values)
}

// Record is one row of a Table.
type Record struct {
	Index   float64
	Label   int
	Labeled bool
	Values  map[string]float64
	// Text holds the text columns; nil when the table has none.
	Text map[string]string
}

// Table is an immutable, ordered set of modes sharing the same columns,
// optionally carrying a cluster label per row. Only numeric columns can be
// clustered on; text columns (sensor ids, setup names) pass through.
type Table struct {
	index  []float64
	names  []string
	cols   map[string][]float64
	text   map[string][]string
	labels []int
}

// NewTable creates a table from an index and columns. All inputs are copied.
func NewTable(index []float64, cols ...Column) (*Table, error) {
	t := &Table{
		index: slices.Clone(index),
		names: make([]string, 0, len(cols)),
		cols:  make(map[string][]float64, len(cols)),
		text:  make(map[string][]string),
	}
	if t.index == nil {
		t.index = []float64{}
	}

	for _, c := range cols {
		switch {
		case c.Name == "":
			return nil, &SchemaError{Column: c.Name, Reason: "empty column name"}
		case c.Name == IndexColumn || c.Name == LabelColumn:
			return nil, &SchemaError{Column: c.Name, Reason: "reserved column name"}
		case c.Text != nil && c.Values != nil:
			return nil, &SchemaError{Column: c.Name, Reason: "both numeric and text values"}
		case c.len() != len(index):
			return nil, &SchemaError{
				Column: c.Name,
				Reason: fmt.Sprintf("length %d does not match index length %d", c.len(), len(index)),
			}
		case t.Has(c.Name):
			return nil, &SchemaError{Column: c.Name, Reason: "duplicate column"}
		}
		t.names = append(t.names, c.Name)
		if c.Text != nil {
			t.text[c.Name] = slices.Clone(c.Text)
			continue
		}
		t.cols[c.Name] = slices.Clone(c.Values)
	}

	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Columns returns the column names in table order.
func (t *Table) Columns() []string { return slices.Clone(t.names) }

// Has reports whether the table has the named column of either kind.
func (t *Table) Has(name string) bool {
	return t.numeric(name) || t.IsText(name)
}

// IsText reports whether name is a text column.
func (t *Table) IsText(name string) bool {
	_, ok := t.text[name]
	return ok
}

func (t *Table) numeric(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Text returns a copy of the named text column.
func (t *Table) Text(name string) ([]string, bool) {
	v, ok := t.text[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// TextAt returns the value of the text column col in row.
func (t *Table) TextAt(row int, col string) (string, bool) {
	v, ok := t.text[col]
	if !ok {
		return "", false
	}
	return v[row], true
}

// Column returns a copy of the named numeric column.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.cols[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Index returns a copy of the index.
func (t *Table) Index() []float64 { return slices.Clone(t.index) }

// IndexAt returns the index value of row.
func (t *Table) IndexAt(row int) float64 { return t.index[row] }

// Value returns the value of the numeric column col in row.
func (t *Table) Value(row int, col string) (float64, bool) {
	v, ok := t.cols[col]
	if !ok {
		return 0, false
	}
	return v[row], true
}

// Labeled reports whether the table carries cluster labels.
func (t *Table) Labeled() bool { return t.labels != nil }

// Labels returns a copy of the labels, or nil for an unlabeled table.
func (t *Table) Labels() []int { return slices.Clone(t.labels) }

// LabelAt returns the label of row. ok is false for unlabeled tables.
func (t *Table) LabelAt(row int) (label int, ok bool) {
	if t.labels == nil {
		return Noise, false
	}
	return t.labels[row], true
}

// Record returns row as a Record.
func (t *Table) Record(row int) Record {
	r := Record{
		Index:  t.index[row],
		Label:  Noise,
		Values: make(map[string]float64, len(t.names)),
	}
	if t.labels != nil {
		r.Label = t.labels[row]
		r.Labeled = true
	}
	if len(t.text) > 0 {
		r.Text = make(map[string]string, len(t.text))
	}
	for _, name := range t.names {
		if v, ok := t.text[name]; ok {
			r.Text[name] = v[row]
			continue
		}
		r.Values[name] = t.cols[name][row]
	}
	return r
}

// Take returns a new table with the given rows in the given order.
func (t *Table) Take(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.Len() {
			return nil, &DataError{Reason: fmt.Sprintf("row %d out of range [0, %d)", r, t.Len())}
		}
	}
	return t.take(rows), nil
}

func (t *Table) take(rows []int) *Table {
	out := &Table{
		index: make([]float64, len(rows)),
		names: t.names,
		cols:  make(map[string][]float64, len(t.cols)),
		text:  make(map[string][]string, len(t.text)),
	}
	for i, r := range rows {
		out.index[i] = t.index[r]
	}
	for name, src := range t.cols {
		out.cols[name] = pick(src, rows)
	}
	for name, src := range t.text {
		out.text[name] = pick(src, rows)
	}
	if t.labels != nil {
		out.labels = pick(t.labels, rows)
	}
	return out
}

func pick[T any](src []T, rows []int) []T {
	dst := make([]T, len(rows))
	for i, r := range rows {
		dst[i] = src[r]
	}
	return dst
}

// WithLabels returns a copy of the table carrying labels. Labels must be
// Noise or non-negative.
func (t *Table) WithLabels(labels []int) (*Table, error) {
	if len(labels) != t.Len() {
		return nil, &SchemaError{
			Column: LabelColumn,
			Reason: fmt.Sprintf("length %d does not match table length %d", len(labels), t.Len()),
		}
	}
	for i, l := range labels {
		if l < Noise {
			return nil, &DataError{Reason: fmt.Sprintf("invalid label %d at row %d", l, i)}
		}
	}
	return t.withLabels(slices.Clone(labels)), nil
}

// withLabels shares column storage with t; labels must not be modified afterwards.
func (t *Table) withLabels(labels []int) *Table {
	return &Table{
		index:  t.index,
		names:  t.names,
		cols:   maps.Clone(t.cols),
		text:   maps.Clone(t.text),
		labels: labels,
	}
}

// WithoutNoise returns the rows whose label is not Noise. An unlabeled table
// is returned unchanged.
func (t *Table) WithoutNoise() *Table {
	if t.labels == nil {
		return t
	}
	rows := make([]int, 0, len(t.labels))
	for i, l := range t.labels {
		if l != Noise {
			rows = append(rows, i)
		}
	}
	return t.take(rows)
}

// CompactLabels renumbers the clusters 0..k-1 in order of first appearance.
// Noise stays Noise.
func (t *Table) CompactLabels() *Table {
	if t.labels == nil {
		return t
	}
	mapping := make(map[int]int)
	labels := make([]int, len(t.labels))
	for i, l := range t.labels {
		if l == Noise {
			labels[i] = Noise
			continue
		}
		next, ok := mapping[l]
		if !ok {
			next = len(mapping)
			mapping[l] = next
		}
		labels[i] = next
	}
	return t.withLabels(labels)
}

// column returns the backing slice of a numeric column; callers must not
// modify it.
func (t *Table) column(name string) []float64 { return t.cols[name] }
