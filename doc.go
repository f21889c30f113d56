// Package omacluster groups the modes identified by operational modal analysis
// (OMA) into clusters of physically consistent modes.
//
// A mode is a row of a Table: an index (typically a timestamp), a frequency,
// a damping ratio, a shape-derived size and any number of passthrough columns.
// Spurious modes scatter while physical modes form dense groups in the scaled
// feature space, so density-based clustering separates them.
//
// # Quick Start
//
//	t, _ := omacluster.NewTable(index,
//	    omacluster.Column{Name: "frequency", Values: freq},
//	    omacluster.Column{Name: "size", Values: size},
//	    omacluster.Column{Name: "damping", Values: damping},
//	)
//
//	c, _ := omacluster.NewDBSCAN(2, 10, omacluster.WithMaxDamping(5))
//	if err := c.Fit(ctx, t); err != nil {
//	    return err
//	}
//	out, _ := c.Predict(200)
//	modes := out.WithoutNoise()
//
// # Pipeline
//
// Fit runs the preprocessor and the labeler:
//
//  1. optional frequency range and per-row prefilter
//  2. subsampling: the first row of every floor(index/divider) bucket
//  3. selection of the clustering columns and scaling by the multipliers
//  4. optional time axis feature
//  5. labeling with DBSCAN, HDBSCAN or a custom Labeler
//
// Predict groups the fitted, unscaled rows by label and keeps the groups with
// enough members, a low mean damping and a large mean size. Summaries reports
// the representative parameters of the kept clusters.
//
// # Errors
//
// All errors can be matched with errors.Is against ErrConfiguration,
// ErrSchema, ErrData and ErrState, or unpacked with errors.As.
package omacluster
