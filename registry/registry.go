// Package registry publishes the cluster summaries of a clustering run so that
// modes can be tracked across runs.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/blobstore"
	"github.com/hupe1980/omacluster/codec"
)

// ErrDuplicate is returned when a mode set with the same source and run ID
// was already published.
var ErrDuplicate = errors.New("registry: mode set already published")

// ErrNotFound is returned by Get for runs that were never published or whose
// publication did not complete.
var ErrNotFound = blobstore.ErrNotFound

// ModeSet is the result of one clustering run over one source.
type ModeSet struct {
	RunID     string                      `json:"run_id" yaml:"run_id"`
	Source    string                      `json:"source" yaml:"source"`
	Algorithm string                      `json:"algorithm" yaml:"algorithm"`
	CreatedAt time.Time                   `json:"created_at" yaml:"created_at"`
	Clusters  []omacluster.ClusterSummary `json:"clusters" yaml:"clusters"`
}

// NewModeSet stamps clusters with a fresh run ID and the current time.
func NewModeSet(source, algorithm string, clusters []omacluster.ClusterSummary) ModeSet {
	return ModeSet{
		RunID:     uuid.NewString(),
		Source:    source,
		Algorithm: algorithm,
		CreatedAt: time.Now().UTC(),
		Clusters:  clusters,
	}
}

// Validate checks the identifying fields.
func (m ModeSet) Validate() error {
	if m.Source == "" {
		return errors.New("registry: source must not be empty")
	}
	if _, err := uuid.Parse(m.RunID); err != nil {
		return fmt.Errorf("registry: invalid run id %q: %w", m.RunID, err)
	}
	return nil
}

// Registry publishes mode sets.
type Registry interface {
	Publish(ctx context.Context, set ModeSet) error
}

// BlobRegistry stores each mode set as one encoded document under
// <prefix>/<source>/<run_id>.<ext>.
type BlobRegistry struct {
	store  blobstore.Store
	codec  codec.Codec
	prefix string
}

// NewBlobRegistry creates a registry on top of store. A nil codec means
// codec.Default.
func NewBlobRegistry(store blobstore.Store, c codec.Codec, prefix string) *BlobRegistry {
	if c == nil {
		c = codec.Default
	}
	return &BlobRegistry{store: store, codec: c, prefix: strings.Trim(prefix, "/")}
}

func (r *BlobRegistry) ext() string {
	if r.codec.Name() == "yaml" {
		return ".yaml"
	}
	return ".json"
}

func (r *BlobRegistry) dir(source string) string {
	return path.Join(r.prefix, source) + "/"
}

func (r *BlobRegistry) name(source, runID string) string {
	return path.Join(r.prefix, source, runID+r.ext())
}

// Publish writes set. Publishing the same run twice returns ErrDuplicate.
func (r *BlobRegistry) Publish(ctx context.Context, set ModeSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	name := r.name(set.Source, set.RunID)
	rc, err := r.store.Open(ctx, name)
	switch {
	case err == nil:
		_ = rc.Close()
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	case !errors.Is(err, blobstore.ErrNotFound):
		return err
	}

	data, err := r.codec.Marshal(set)
	if err != nil {
		return fmt.Errorf("registry: encode %s: %w", name, err)
	}
	return r.store.Put(ctx, name, data)
}

// Get reads a published mode set.
func (r *BlobRegistry) Get(ctx context.Context, source, runID string) (ModeSet, error) {
	name := r.name(source, runID)
	rc, err := r.store.Open(ctx, name)
	if err != nil {
		return ModeSet{}, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ModeSet{}, err
	}

	var set ModeSet
	if err := r.codec.Unmarshal(data, &set); err != nil {
		return ModeSet{}, fmt.Errorf("registry: decode %s: %w", name, err)
	}
	return set, nil
}

// Runs returns the run IDs published for source, sorted.
func (r *BlobRegistry) Runs(ctx context.Context, source string) ([]string, error) {
	dir := r.dir(source)
	names, err := r.store.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	ext := r.ext()
	runs := make([]string, 0, len(names))
	for _, n := range names {
		rel := strings.TrimPrefix(n, dir)
		if strings.Contains(rel, "/") || !strings.HasSuffix(rel, ext) {
			continue
		}
		runs = append(runs, strings.TrimSuffix(rel, ext))
	}
	slices.Sort(runs)
	return runs, nil
}
