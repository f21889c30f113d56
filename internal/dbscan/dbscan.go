package dbscan

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/omacluster/distance"
)

// Noise is the label assigned to points that belong to no cluster.
const Noise = -1

const undefined = -2

// chunkSize is the number of region queries handled by one worker task.
const chunkSize = 256

var (
	// ErrInvalidEps is returned when eps is not strictly positive.
	ErrInvalidEps = errors.New("dbscan: eps must be positive")
	// ErrInvalidMinSamples is returned when minSamples is below one.
	ErrInvalidMinSamples = errors.New("dbscan: min samples must be at least 1")
)

// Options configures a DBSCAN run.
type Options struct {
	// Eps is the neighbourhood radius. Points at distance <= Eps are neighbours.
	Eps float64
	// MinSamples is the neighbourhood size (including the point itself)
	// required for a point to be a core point.
	MinSamples int
	// Distance defaults to distance.Euclidean.
	Distance distance.Func
	// Workers bounds region query parallelism. Defaults to GOMAXPROCS.
	Workers int
}

// Labeler runs DBSCAN with fixed options.
type Labeler struct {
	opts Options
}

// New validates opts and returns a Labeler.
func New(opts Options) (*Labeler, error) {
	if !(opts.Eps > 0) {
		return nil, ErrInvalidEps
	}
	if opts.MinSamples < 1 {
		return nil, ErrInvalidMinSamples
	}
	if opts.Distance == nil {
		opts.Distance = distance.Euclidean
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Labeler{opts: opts}, nil
}

// Name returns "dbscan".
func (l *Labeler) Name() string { return "dbscan" }

// Label assigns a cluster label to every point. Clusters are numbered from 0
// in discovery order; unassigned points get Noise.
func (l *Labeler) Label(ctx context.Context, points [][]float64) ([]int, error) {
	return Run(ctx, points, l.opts)
}

// Run executes DBSCAN over points.
//
// A point is a core point when at least MinSamples points (itself included)
// lie within Eps. Clusters grow from core points in index order; a border
// point joins the first cluster that reaches it, which keeps the result
// independent of worker scheduling.
func Run(ctx context.Context, points [][]float64, opts Options) ([]int, error) {
	if !(opts.Eps > 0) {
		return nil, ErrInvalidEps
	}
	if opts.MinSamples < 1 {
		return nil, ErrInvalidMinSamples
	}
	dist := opts.Distance
	if dist == nil {
		dist = distance.Euclidean
	}

	n := len(points)
	if n == 0 {
		return nil, nil
	}

	neighbors, err := regionQueries(ctx, points, opts.Eps, dist, opts.Workers)
	if err != nil {
		return nil, err
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = undefined
	}

	cluster := 0
	stack := make([]int, 0, 64)
	for i := 0; i < n; i++ {
		if labels[i] != undefined || len(neighbors[i]) < opts.MinSamples {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		labels[i] = cluster
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			q := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(neighbors[q]) < opts.MinSamples {
				continue // border point, does not expand
			}
			for _, j := range neighbors[q] {
				if labels[j] != undefined {
					continue
				}
				labels[j] = cluster
				if len(neighbors[j]) >= opts.MinSamples {
					stack = append(stack, j)
				}
			}
		}
		cluster++
	}

	for i := range labels {
		if labels[i] == undefined {
			labels[i] = Noise
		}
	}
	return labels, nil
}

// regionQueries returns, for every point, the indices of all points within
// eps (the point itself included), in ascending index order.
func regionQueries(ctx context.Context, points [][]float64, eps float64, dist distance.Func, workers int) ([][]int, error) {
	n := len(points)
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("dbscan: point %d has dimension %d, expected %d", i, len(p), dim)
		}
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	neighbors := make([][]int, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				var nb []int
				for j := 0; j < n; j++ {
					if dist(points[i], points[j]) <= eps {
						nb = append(nb, j)
					}
				}
				neighbors[i] = nb
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return neighbors, nil
}
