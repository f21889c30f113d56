// Package hdbscan implements hierarchical density-based clustering (HDBSCAN).
//
// The pipeline follows the usual formulation:
//
//  1. core distances from the min-samples nearest neighbours (point included)
//  2. the minimum spanning tree of the mutual reachability graph (Prim)
//  3. a single linkage dendrogram from the sorted tree edges
//  4. a condensed tree that drops splits smaller than the minimum cluster size
//  5. excess-of-mass cluster selection, root excluded
//
// Only discrete labels are produced; -1 is noise. Distances are computed on
// the fly, so memory stays linear in the number of points while time is
// quadratic.
package hdbscan
