package hdbscan

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/omacluster/distance"
)

const chunkSize = 128

// coreDistances returns, for every point, the distance to its minSamples-th
// nearest neighbour counting the point itself. minSamples is clamped to
// [1, n], so minSamples == 1 yields all zeros.
func coreDistances(ctx context.Context, points [][]float64, minSamples int, dist distance.Func, workers int) ([]float64, error) {
	n := len(points)
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("hdbscan: point %d has dimension %d, expected %d", i, len(p), dim)
		}
	}

	k := max(min(minSamples, n), 1)
	core := make([]float64, n)
	if k == 1 {
		return core, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			row := make([]float64, n)
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for j := 0; j < n; j++ {
					row[j] = dist(points[i], points[j])
				}
				slices.Sort(row)
				core[i] = row[k-1]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return core, nil
}
