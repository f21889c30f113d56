package modeio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/blobstore"
)

// Load reads the table stored under name, decompressing by extension.
func Load(ctx context.Context, store blobstore.Store, name string, opts ReadOptions) (*omacluster.Table, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("modeio: open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	r, err := NewReader(rc, CompressionFor(name))
	if err != nil {
		return nil, fmt.Errorf("modeio: %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	t, err := ReadCSV(r, opts)
	if err != nil {
		return nil, fmt.Errorf("modeio: %s: %w", name, err)
	}
	return t, nil
}

// Save writes t under name, compressing by extension.
func Save(ctx context.Context, store blobstore.Store, name string, t *omacluster.Table, opts WriteOptions) error {
	data, err := Encode(t, CompressionFor(name), opts)
	if err != nil {
		return fmt.Errorf("modeio: %s: %w", name, err)
	}
	return store.Put(ctx, name, data)
}

// Encode returns t as compressed CSV.
func Encode(t *omacluster.Table, c Compression, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, c)
	if err != nil {
		return nil, err
	}
	if err := WriteCSV(w, t, opts); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
