package omacluster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/omacluster/distance"
)

// Labeler assigns a cluster label (or Noise) to every point of a feature matrix.
// Implementations must be deterministic for identical input.
type Labeler interface {
	Name() string
	Label(ctx context.Context, points [][]float64) ([]int, error)
}

type fitResult struct {
	table    *Table // retained unscaled rows, labeled
	features [][]float64
	schema   columnSchema
}

// Clusterer groups OMA modes into clusters of physically consistent modes.
//
// The preprocessing and filtering pipeline is shared; the clustering itself is
// delegated to a Labeler. A Clusterer is not safe for concurrent use.
type Clusterer struct {
	cfg     Config
	labeler Labeler
	logger  *Logger
	metrics MetricsCollector
	state   *fitResult
}

// New creates a Clusterer around a custom Labeler.
func New(labeler Labeler, optFns ...Option) (*Clusterer, error) {
	if labeler == nil {
		return nil, configError("labeler", "must not be nil")
	}
	o := applyOptions(optFns)
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = labeler.Name()
	return newClusterer(cfg, labeler, o), nil
}

func newClusterer(cfg Config, labeler Labeler, o options) *Clusterer {
	return &Clusterer{
		cfg:     cfg,
		labeler: labeler,
		logger:  o.logger.WithAlgorithm(cfg.Algorithm),
		metrics: o.metricsCollector,
	}
}

func distanceFunc(m distance.Metric) (distance.Func, error) {
	fn, err := distance.Provider(m)
	if err != nil {
		return nil, &ConfigurationError{Field: "metric", Reason: "unsupported", cause: err}
	}
	return fn, nil
}

// Config returns a copy of the configuration.
func (c *Clusterer) Config() Config { return c.cfg.clone() }

// Fitted reports whether the last Fit succeeded.
func (c *Clusterer) Fitted() bool { return c.state != nil }

// Reset discards the fit state.
func (c *Clusterer) Reset() { c.state = nil }

// Fit preprocesses t and clusters the retained rows. Any previous fit state
// is discarded, also when Fit fails.
func (c *Clusterer) Fit(ctx context.Context, t *Table) error {
	start := time.Now()
	c.state = nil

	res, err := c.fit(ctx, t)

	rows, retained, clusters, noise := 0, 0, 0, 0
	if t != nil {
		rows = t.Len()
	}
	if res != nil {
		retained = res.table.Len()
		clusters, noise = countLabels(res.table.labels)
	}
	took := time.Since(start)
	c.metrics.RecordFit(rows, retained, took, err)
	c.logger.LogFit(ctx, rows, retained, clusters, noise, took, err)

	if err != nil {
		return err
	}
	c.state = res
	return nil
}

func (c *Clusterer) fit(ctx context.Context, t *Table) (*fitResult, error) {
	if t == nil {
		return nil, &DataError{Reason: "nil table"}
	}

	p, err := preprocess(t, c.cfg)
	if err != nil {
		return nil, err
	}
	if len(p.features) == 0 {
		return nil, &DataError{Reason: "no rows left after preprocessing"}
	}

	labels, err := c.labeler.Label(ctx, p.features)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", c.labeler.Name(), translateError(err))
	}
	if len(labels) != len(p.features) {
		return nil, fmt.Errorf("%s: got %d labels for %d points", c.labeler.Name(), len(labels), len(p.features))
	}
	for i, l := range labels {
		if l < Noise {
			return nil, fmt.Errorf("%s: invalid label %d for point %d", c.labeler.Name(), l, i)
		}
	}

	return &fitResult{
		table:    p.table.withLabels(labels),
		features: p.features,
		schema:   p.schema,
	}, nil
}

// Predict returns the fitted rows whose cluster has at least minClusterSize
// members, a mean damping <= MaxDamping and a mean size >= MinSize. Rows keep
// their original values, order and labels. Noise rows form a group like any
// other label; use WithoutNoise to drop them.
func (c *Clusterer) Predict(minClusterSize int) (*Table, error) {
	start := time.Now()

	out, err := c.predict(minClusterSize)

	kept, dropped := 0, 0
	if out != nil {
		kept = out.Len()
		dropped = c.state.table.Len() - kept
	}
	c.metrics.RecordPredict(kept, time.Since(start), err)
	c.logger.LogPredict(context.Background(), minClusterSize, kept, dropped, err)

	return out, err
}

func (c *Clusterer) predict(minClusterSize int) (*Table, error) {
	groups, err := c.groups("predict", minClusterSize)
	if err != nil {
		return nil, err
	}
	kept := filterGroups(groups, minClusterSize, c.cfg)
	return c.state.table.take(union(kept)), nil
}

// Summaries describes the non-noise clusters that survive
// Predict(minClusterSize), ordered by label.
func (c *Clusterer) Summaries(minClusterSize int) ([]ClusterSummary, error) {
	groups, err := c.groups("summaries", minClusterSize)
	if err != nil {
		return nil, err
	}
	if c.state.schema.frequency == "" {
		return nil, &SchemaError{Column: "frequency", Reason: "required for summaries"}
	}

	out := make([]ClusterSummary, 0, len(groups))
	for _, g := range filterGroups(groups, minClusterSize, c.cfg) {
		if g.label == Noise {
			continue
		}
		out = append(out, summarize(c.state.table, c.state.schema, g))
	}
	return out, nil
}

func (c *Clusterer) groups(op string, minClusterSize int) ([]group, error) {
	if c.state == nil {
		return nil, &StateError{Op: op}
	}
	if minClusterSize < 1 {
		return nil, configError("min_cluster_size", "must be at least 1, got %d", minClusterSize)
	}
	return groupRows(c.state.table, c.state.schema)
}

// Labels returns the labels of the retained rows of the last fit.
func (c *Clusterer) Labels() ([]int, error) {
	if c.state == nil {
		return nil, &StateError{Op: "labels"}
	}
	return c.state.table.Labels(), nil
}

// Table returns the retained unscaled rows of the last fit with their labels.
func (c *Clusterer) Table() (*Table, error) {
	if c.state == nil {
		return nil, &StateError{Op: "table"}
	}
	return c.state.table, nil
}

// Features returns a copy of the scaled feature matrix of the last fit.
func (c *Clusterer) Features() ([][]float64, error) {
	if c.state == nil {
		return nil, &StateError{Op: "features"}
	}
	out := make([][]float64, len(c.state.features))
	for i, row := range c.state.features {
		out[i] = slices.Clone(row)
	}
	return out, nil
}

func countLabels(labels []int) (clusters, noise int) {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l == Noise {
			noise++
			continue
		}
		seen[l] = struct{}{}
	}
	return len(seen), noise
}
