package modeio

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/omacluster"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"42", 42},
		{" 1.5 ", 1.5},
		{"1970-01-01T00:01:00Z", 60},
		{"1970-01-01 00:00:10", 10},
		{"1970-01-01 00:00:00.5", 0.5},
		{"1970-01-02", 86400},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIndex(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := ParseIndex("yesterday")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	in := "index,frequency,damping,size\n" +
		"0,2.0,1.5,10\n" +
		"1,2.1,,11\n"

	tbl, err := ReadCSV(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"frequency", "damping", "size"}, tbl.Columns())
	assert.Equal(t, []float64{0, 1}, tbl.Index())
	assert.False(t, tbl.Labeled())

	d, ok := tbl.Value(1, "damping")
	require.True(t, ok)
	assert.True(t, math.IsNaN(d))
}

func TestReadCSV_Labels(t *testing.T) {
	in := "time,frequency,label\n" +
		"2024-01-01T00:00:00Z,2,0\n" +
		"2024-01-01T00:00:01Z,3,-1\n"

	tbl, err := ReadCSV(strings.NewReader(in), ReadOptions{IndexColumn: "time"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, omacluster.Noise}, tbl.Labels())
	assert.Equal(t, []string{"frequency"}, tbl.Columns())
	assert.InDelta(t, 1.0, tbl.IndexAt(1)-tbl.IndexAt(0), 1e-9)
}

func TestReadCSV_UnnamedIndex(t *testing.T) {
	in := ",frequency\n5,2\n6,3\n"

	tbl, err := ReadCSV(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, tbl.Index())
}

func TestReadCSV_TextColumns(t *testing.T) {
	in := "index,frequency,sensor,setup\n" +
		"0,2.0,s1,\n" +
		"1,2.1,s2,B 2\n"

	tbl, err := ReadCSV(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"frequency", "sensor", "setup"}, tbl.Columns())
	assert.False(t, tbl.IsText("frequency"))

	sensor, ok := tbl.Text("sensor")
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "s2"}, sensor)

	setup, ok := tbl.Text("setup")
	require.True(t, ok)
	assert.Equal(t, []string{"", "B 2"}, setup)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		column string
	}{
		{"empty", "", omacluster.IndexColumn},
		{"missing index", "frequency\n1\n", omacluster.IndexColumn},
		{"bad label", "index,label\n0,x\n", omacluster.LabelColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), ReadOptions{})
			require.ErrorIs(t, err, omacluster.ErrSchema)

			var se *omacluster.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.column, se.Column)
		})
	}

	_, err := ReadCSV(strings.NewReader("index,frequency\nnope,1\n"), ReadOptions{})
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("index,label\n0,-4\n"), ReadOptions{})
	assert.ErrorIs(t, err, omacluster.ErrData)
}

func TestWriteCSV(t *testing.T) {
	tbl, err := omacluster.NewTable([]float64{0, 1.5},
		omacluster.Column{Name: "frequency", Values: []float64{2, 0.1}},
		omacluster.Column{Name: "size", Values: []float64{10, 1e-7}},
	)
	require.NoError(t, err)
	labeled, err := tbl.WithLabels([]int{3, omacluster.Noise})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, labeled, WriteOptions{}))
	assert.Equal(t, "index,frequency,size,label\n0,2,10,3\n1.5,0.1,1e-07,-1\n", buf.String())

	back, err := ReadCSV(&buf, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, labeled.Index(), back.Index())
	assert.Equal(t, labeled.Labels(), back.Labels())
	for _, name := range labeled.Columns() {
		want, _ := labeled.Column(name)
		got, ok := back.Column(name)
		require.True(t, ok)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("column %s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestWriteCSV_TextColumns(t *testing.T) {
	in := "index,sensor,frequency\n0,\"north, deck\",2\n1,s2,3\n"

	tbl, err := ReadCSV(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, WriteOptions{}))
	assert.Equal(t, in, buf.String())
}

func TestWriteCSV_Options(t *testing.T) {
	tbl, err := omacluster.NewTable([]float64{1704067200, 1704067200.5},
		omacluster.Column{Name: "frequency", Values: []float64{2, 3}},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, WriteOptions{IndexColumn: "time", TimeLayout: TimeLayout("rfc3339nano")}))
	assert.Equal(t, "time,frequency\n2024-01-01T00:00:00Z,2\n2024-01-01T00:00:00.5Z,3\n", buf.String())

	back, err := ReadCSV(&buf, ReadOptions{IndexColumn: "time"})
	require.NoError(t, err)
	assert.Equal(t, tbl.Index(), back.Index())

	t.Run("collision", func(t *testing.T) {
		withTime, err := omacluster.NewTable([]float64{0},
			omacluster.Column{Name: "time", Values: []float64{5}},
		)
		require.NoError(t, err)

		err = WriteCSV(&bytes.Buffer{}, withTime, WriteOptions{IndexColumn: "time"})
		var se *omacluster.SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "time", se.Column)
	})
}

func TestTimeLayout(t *testing.T) {
	assert.Equal(t, time.RFC3339, TimeLayout("rfc3339"))
	assert.Equal(t, time.RFC3339, TimeLayout("RFC3339"))
	assert.Equal(t, time.DateTime, TimeLayout("datetime"))
	assert.Equal(t, time.DateOnly, TimeLayout("date"))
	assert.Equal(t, "02.01.2006", TimeLayout("02.01.2006"))
	assert.Empty(t, TimeLayout(""))

	assert.Equal(t, "2024-01-01 00:00:00", FormatTime(1704067200, time.DateTime))
	assert.Equal(t, "1969-12-31T23:59:59.75Z", FormatTime(-0.25, time.RFC3339Nano))
}
