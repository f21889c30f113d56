package omacluster

import (
	"github.com/hupe1980/omacluster/internal/dbscan"
)

// NewDBSCAN creates a Clusterer that labels modes with DBSCAN.
//
// eps is the neighbourhood radius in scaled feature space and minSamples the
// number of neighbours (the mode itself included) a core mode needs.
func NewDBSCAN(eps float64, minSamples int, optFns ...Option) (*Clusterer, error) {
	o := applyOptions(optFns)
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	dist, err := distanceFunc(o.metric)
	if err != nil {
		return nil, err
	}

	l, err := dbscan.New(dbscan.Options{
		Eps:        eps,
		MinSamples: minSamples,
		Distance:   dist,
		Workers:    o.workers,
	})
	if err != nil {
		return nil, translateError(err)
	}

	cfg.Algorithm = l.Name()
	cfg.Eps = eps
	cfg.MinSamples = minSamples

	return newClusterer(cfg, l, o), nil
}
