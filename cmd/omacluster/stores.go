package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/omacluster/blobstore"
	"github.com/hupe1980/omacluster/blobstore/minio"
	"github.com/hupe1980/omacluster/blobstore/s3"
)

// stores hands out one blob store per scheme and bucket.
type stores struct {
	cfg StorageConfig

	mu    sync.Mutex
	cache map[string]blobstore.Store
}

func newStores(cfg StorageConfig) *stores {
	return &stores{cfg: cfg, cache: make(map[string]blobstore.Store)}
}

// add registers a store for a scheme and bucket, replacing any cached one.
func (s *stores) add(scheme, bucket string, store blobstore.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[scheme+"://"+bucket] = store
}

func (s *stores) resolve(ctx context.Context, loc blobstore.Location) (blobstore.Store, error) {
	key := loc.Scheme + "://" + loc.Bucket

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.cache[key]; ok {
		return st, nil
	}

	var (
		st  blobstore.Store
		err error
	)
	switch loc.Scheme {
	case blobstore.SchemeFile:
		st = blobstore.NewLocalStore("")
	case blobstore.SchemeS3:
		var optFns []func(*s3.Options)
		if s.cfg.S3Region != "" {
			optFns = append(optFns, s3.WithRegion(s.cfg.S3Region))
		}
		if s.cfg.S3Endpoint != "" {
			optFns = append(optFns, s3.WithEndpoint(s.cfg.S3Endpoint))
		}
		st, err = s3.New(ctx, loc.Bucket, optFns...)
	case blobstore.SchemeMinio:
		if s.cfg.MinioEndpoint == "" {
			return nil, fmt.Errorf("storage.minio_endpoint is required for %s", loc)
		}
		st, err = minio.Connect(s.cfg.MinioEndpoint, s.cfg.MinioAccessKey, s.cfg.MinioSecretKey, s.cfg.MinioSecure, loc.Bucket, "")
	default:
		return nil, fmt.Errorf("unsupported scheme %q", loc.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", loc.Scheme, err)
	}

	s.cache[key] = st
	return st, nil
}
