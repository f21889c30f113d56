package omacluster

import (
	"github.com/hupe1980/omacluster/internal/hdbscan"
)

// NewHDBSCAN creates a Clusterer that labels modes with HDBSCAN.
//
// minClusterSize is the smallest group treated as a cluster; minSamples sets
// the core distance neighbourhood and defaults to minClusterSize when zero.
func NewHDBSCAN(minClusterSize, minSamples int, optFns ...Option) (*Clusterer, error) {
	o := applyOptions(optFns)
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	dist, err := distanceFunc(o.metric)
	if err != nil {
		return nil, err
	}

	l, err := hdbscan.New(hdbscan.Options{
		MinClusterSize: minClusterSize,
		MinSamples:     minSamples,
		Distance:       dist,
		Workers:        o.workers,
	})
	if err != nil {
		return nil, translateError(err)
	}

	cfg.Algorithm = l.Name()
	cfg.MinClusterSize = minClusterSize
	cfg.MinSamples = minSamples
	if minSamples == 0 {
		cfg.MinSamples = minClusterSize
	}

	return newClusterer(cfg, l, o), nil
}
