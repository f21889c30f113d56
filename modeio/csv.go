package modeio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/omacluster"
)

// ReadOptions configures ReadCSV.
type ReadOptions struct {
	// IndexColumn names the index column. Default: "index". When the column
	// is missing and the first header cell is empty, the first column is used.
	IndexColumn string
	// LabelColumn names the label column. Default: "label".
	LabelColumn string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseIndex parses an index cell: a number, or a timestamp converted to Unix
// seconds. Timestamps without zone are UTC.
func ParseIndex(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return float64(ts.UnixNano()) / 1e9, nil
		}
	}
	return 0, fmt.Errorf("modeio: invalid index value %q", s)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadCSV reads a mode table.
func ReadCSV(r io.Reader, opts ReadOptions) (*omacluster.Table, error) {
	if opts.IndexColumn == "" {
		opts.IndexColumn = omacluster.IndexColumn
	}
	if opts.LabelColumn == "" {
		opts.LabelColumn = omacluster.LabelColumn
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &omacluster.SchemaError{Column: opts.IndexColumn, Reason: "empty input"}
	}
	if err != nil {
		return nil, fmt.Errorf("modeio: read header: %w", err)
	}
	header = append([]string(nil), header...)

	indexPos, labelPos := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case opts.IndexColumn:
			indexPos = i
		case opts.LabelColumn:
			labelPos = i
		}
	}
	if indexPos < 0 {
		if len(header) == 0 || strings.TrimSpace(header[0]) != "" {
			return nil, &omacluster.SchemaError{Column: opts.IndexColumn, Reason: "index column missing"}
		}
		indexPos = 0
	}

	var (
		index  []float64
		labels []int
		cells  = make([][]string, len(header))
	)

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("modeio: read row: %w", err)
		}
		line++

		for i, cell := range record {
			switch i {
			case indexPos:
				v, err := ParseIndex(cell)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				index = append(index, v)
			case labelPos:
				l, err := strconv.Atoi(strings.TrimSpace(cell))
				if err != nil {
					return nil, &omacluster.SchemaError{Column: header[i], Reason: fmt.Sprintf("line %d: invalid label %q", line, cell)}
				}
				labels = append(labels, l)
			default:
				cells[i] = append(cells[i], cell)
			}
		}
	}

	cols := make([]omacluster.Column, 0, len(header))
	for i, name := range header {
		if i == indexPos || i == labelPos {
			continue
		}
		cols = append(cols, column(strings.TrimSpace(name), cells[i]))
	}

	t, err := omacluster.NewTable(index, cols...)
	if err != nil {
		return nil, err
	}
	if labelPos >= 0 {
		if labels == nil {
			labels = []int{}
		}
		return t.WithLabels(labels)
	}
	return t, nil
}

// column parses cells as numbers. A column with any non-numeric cell is kept
// as text, unchanged.
func column(name string, cells []string) omacluster.Column {
	values := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := parseValue(cell)
		if err != nil {
			return omacluster.Column{Name: name, Text: cells}
		}
		values[i] = v
	}
	return omacluster.Column{Name: name, Values: values}
}

// WriteOptions configures WriteCSV.
type WriteOptions struct {
	// IndexColumn names the index column. Default: "index".
	IndexColumn string
	// LabelColumn names the label column. Default: "label".
	LabelColumn string
	// TimeLayout writes the index as UTC timestamps in this layout, reading
	// index values as Unix seconds. Empty writes numbers.
	TimeLayout string
}

// timeLayoutNames are the layout names accepted by TimeLayout.
var timeLayoutNames = map[string]string{
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"datetime":    time.DateTime,
	"date":        time.DateOnly,
}

// TimeLayout resolves a layout name (rfc3339, rfc3339nano, datetime, date) to a
// time layout. Any other value is returned as a literal layout.
func TimeLayout(name string) string {
	if layout, ok := timeLayoutNames[strings.ToLower(name)]; ok {
		return layout
	}
	return name
}

// FormatTime formats Unix seconds in layout, rounded to the microsecond.
func FormatTime(v float64, layout string) string {
	sec := math.Floor(v)
	nsec := int64(math.Round((v-sec)*1e6)) * 1e3
	return time.Unix(int64(sec), nsec).UTC().Format(layout)
}

// WriteCSV writes t with the index first, then the columns in table order and
// the label column if t is labeled. Values are written in the shortest
// representation that parses back to the same float64; text columns are
// written as they are.
func WriteCSV(w io.Writer, t *omacluster.Table, opts WriteOptions) error {
	if opts.IndexColumn == "" {
		opts.IndexColumn = omacluster.IndexColumn
	}
	if opts.LabelColumn == "" {
		opts.LabelColumn = omacluster.LabelColumn
	}

	cols := t.Columns()
	for _, name := range cols {
		if name == opts.IndexColumn || (t.Labeled() && name == opts.LabelColumn) {
			return &omacluster.SchemaError{Column: name, Reason: "collides with the index or label column"}
		}
	}

	header := append([]string{opts.IndexColumn}, cols...)
	if t.Labeled() {
		header = append(header, opts.LabelColumn)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	format := make([]func(row int) string, len(cols))
	for j, name := range cols {
		if text, ok := t.Text(name); ok {
			format[j] = func(row int) string { return text[row] }
			continue
		}
		values, _ := t.Column(name)
		format[j] = func(row int) string { return FormatFloat(values[row]) }
	}
	labels := t.Labels()

	record := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		if opts.TimeLayout != "" {
			record[0] = FormatTime(t.IndexAt(i), opts.TimeLayout)
		} else {
			record[0] = FormatFloat(t.IndexAt(i))
		}
		for j := range cols {
			record[j+1] = format[j](i)
		}
		if labels != nil {
			record[len(record)-1] = strconv.Itoa(labels[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatFloat formats v in the shortest form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
