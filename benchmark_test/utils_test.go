package benchmark_test

import (
	"testing"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/testutil"
)

// campaign generates n modes: 30 % of each of two physical modes and 40 %
// scattered noise, like the package scenario but scaled.
func campaign(tb testing.TB, n int) *omacluster.Table {
	tb.Helper()

	a, b := n*3/10, n*3/10
	m := testutil.NewRNG(1).Modes([]testutil.ModeGroup{
		{Count: a, Frequency: 2, Damping: 1, Size: 10, FrequencySpread: 0.01, DampingSpread: 0.3, SizeSpread: 1},
		{Count: b, Frequency: 5, Damping: 8, Size: 2, FrequencySpread: 0.01, DampingSpread: 0.3, SizeSpread: 0.5},
	}, testutil.ScatteredNoise(n-a-b))

	t, err := omacluster.NewTable(m.Index,
		omacluster.Column{Name: "frequency", Values: m.Frequency},
		omacluster.Column{Name: "size", Values: m.Size},
		omacluster.Column{Name: "damping", Values: m.Damping},
	)
	if err != nil {
		tb.Fatal(err)
	}
	return t
}

var sizes = []struct {
	name string
	n    int
}{
	{"1k", 1_000},
	{"5k", 5_000},
}
