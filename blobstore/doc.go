// Package blobstore provides storage abstraction for mode tables and cluster
// summaries.
//
// Store is the interface for reading and writing whole blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with atomic rename on Put
//   - MemoryStore: In-memory store for tests
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Locations
//
// ParseURI splits "s3://bucket/key", "minio://bucket/key" and plain paths into
// a Location, from which callers pick the matching Store:
//
//	loc, _ := blobstore.ParseURI("s3://oma-results/bridge/2024-05.csv.zst")
//	// loc.Scheme == "s3", loc.Bucket == "oma-results", loc.Key == "bridge/2024-05.csv.zst"
package blobstore
