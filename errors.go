package omacluster

import (
	"errors"
	"fmt"

	"github.com/hupe1980/omacluster/internal/dbscan"
	"github.com/hupe1980/omacluster/internal/hdbscan"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrSchema matches every *SchemaError.
	ErrSchema = errors.New("schema error")
	// ErrData matches every *DataError.
	ErrData = errors.New("data error")
	// ErrState matches every *StateError.
	ErrState = errors.New("state error")
)

// ConfigurationError indicates invalid hyperparameters or multiplier keys
// that do not match the clustering columns.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// SchemaError indicates a table that lacks a required column or has an
// inconsistent shape.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
}

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DataError indicates empty or degenerate input after preprocessing.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DataError struct {
	Reason string
	cause  error
}

func (e *DataError) Error() string {
	return "data error: " + e.Reason
}

func (e *DataError) Unwrap() error { return e.cause }

// Is reports whether target is ErrData.
func (e *DataError) Is(target error) bool { return target == ErrData }

// StateError indicates an operation that requires a successful Fit.
type StateError struct {
	Op string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error: %s called before a successful fit", e.Op)
}

// Is reports whether target is ErrState.
func (e *StateError) Is(target error) bool { return target == ErrState }

func configError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// translateError maps labeler errors onto the public taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, dbscan.ErrInvalidEps):
		return &ConfigurationError{Field: "eps", Reason: "must be positive", cause: err}
	case errors.Is(err, dbscan.ErrInvalidMinSamples), errors.Is(err, hdbscan.ErrInvalidMinSamples):
		return &ConfigurationError{Field: "min_samples", Reason: "out of range", cause: err}
	case errors.Is(err, hdbscan.ErrInvalidMinClusterSize):
		return &ConfigurationError{Field: "min_cluster_size", Reason: "must be at least 2", cause: err}
	}

	return err
}
