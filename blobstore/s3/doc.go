// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "oma-results",
//	    s3.WithPrefix("bridge/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	t, err := modeio.Load(ctx, store, "2024-05.csv.zst", modeio.ReadOptions{})
//
// # Features
//
//   - Multipart uploads for large tables
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
