// Package dbscan implements density-based spatial clustering (DBSCAN).
//
// It is the black-box labelling capability behind the DBSCAN clusterer:
// given a feature matrix, eps and min samples it returns one label per
// point, with -1 reserved for noise. Region queries are brute force and
// spread over a bounded worker pool; the expansion phase is sequential so
// labels are deterministic.
package dbscan
