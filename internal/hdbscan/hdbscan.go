package hdbscan

import (
	"context"
	"errors"
	"runtime"

	"github.com/hupe1980/omacluster/distance"
)

// Noise is the label assigned to points that belong to no cluster.
const Noise = -1

// ErrInvalidMinClusterSize is returned when the minimum cluster size is below two.
var ErrInvalidMinClusterSize = errors.New("hdbscan: min cluster size must be at least 2")

// ErrInvalidMinSamples is returned when min samples is negative.
var ErrInvalidMinSamples = errors.New("hdbscan: min samples must not be negative")

// Options configures an HDBSCAN run.
type Options struct {
	// MinClusterSize is the smallest group the condensed tree treats as a cluster.
	MinClusterSize int
	// MinSamples is the neighbourhood size (point itself included) used for
	// core distances. Zero means MinClusterSize.
	MinSamples int
	// Distance defaults to distance.Euclidean.
	Distance distance.Func
	// Workers bounds core distance parallelism. Defaults to GOMAXPROCS.
	Workers int
}

func (o Options) validate() (Options, error) {
	if o.MinClusterSize < 2 {
		return o, ErrInvalidMinClusterSize
	}
	if o.MinSamples < 0 {
		return o, ErrInvalidMinSamples
	}
	if o.MinSamples == 0 {
		o.MinSamples = o.MinClusterSize
	}
	if o.Distance == nil {
		o.Distance = distance.Euclidean
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o, nil
}

// Labeler runs HDBSCAN with fixed options.
type Labeler struct {
	opts Options
}

// New validates opts and returns a Labeler.
func New(opts Options) (*Labeler, error) {
	o, err := opts.validate()
	if err != nil {
		return nil, err
	}
	return &Labeler{opts: o}, nil
}

// Name returns "hdbscan".
func (l *Labeler) Name() string { return "hdbscan" }

// Label assigns a cluster label to every point. Clusters are numbered from 0
// in condensed tree order; unassigned points get Noise.
func (l *Labeler) Label(ctx context.Context, points [][]float64) ([]int, error) {
	return Run(ctx, points, l.opts)
}

// Run executes HDBSCAN with excess-of-mass cluster selection. The root of the
// condensed tree is never selected, so a single homogeneous group is reported
// as noise unless it splits into at least two clusters.
func Run(ctx context.Context, points [][]float64, opts Options) ([]int, error) {
	o, err := opts.validate()
	if err != nil {
		return nil, err
	}

	n := len(points)
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return []int{Noise}, nil
	}

	core, err := coreDistances(ctx, points, o.MinSamples, o.Distance, o.Workers)
	if err != nil {
		return nil, err
	}

	edges, err := minimumSpanningTree(ctx, points, core, o.Distance)
	if err != nil {
		return nil, err
	}

	tree := condense(singleLinkage(edges, n), n, o.MinClusterSize)
	selected := tree.selectClusters()
	return tree.labels(selected), nil
}
