// Package distance provides distance metrics over float64 feature vectors.
//
// The scaled feature vectors produced by the clustering pipeline mix physical
// units (Hz, %, shape size) that were made comparable through per-column
// multipliers. Every metric here is therefore a plain Minkowski-family distance.
//
// # Supported Metrics
//
//   - MetricEuclidean: L2 distance (default)
//   - MetricSquaredEuclidean: squared L2 distance
//   - MetricManhattan: L1 distance
//   - MetricChebyshev: L-infinity distance
//
// # Usage
//
//	fn, _ := distance.Provider(distance.MetricEuclidean)
//	d := fn(a, b)
package distance
