package omacluster

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with clustering-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithAlgorithm adds an algorithm field to the logger.
func (l *Logger) WithAlgorithm(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("algorithm", name),
	}
}

// WithSource adds a source field (input table name) to the logger.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", source),
	}
}

// LogFit logs a fit operation.
func (l *Logger) LogFit(ctx context.Context, rows, retained, clusters, noise int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"rows", rows,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "fit completed",
		"rows", rows,
		"retained", retained,
		"clusters", clusters,
		"noise", noise,
		"took", took,
	)
}

// LogPredict logs a predict operation.
func (l *Logger) LogPredict(ctx context.Context, minClusterSize, kept, dropped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"min_cluster_size", minClusterSize,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "predict completed",
		"min_cluster_size", minClusterSize,
		"kept", kept,
		"dropped", dropped,
	)
}

// LogLoad logs loading an input table.
func (l *Logger) LogLoad(ctx context.Context, name string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "table loaded",
		"name", name,
		"rows", rows,
	)
}

// LogPublish logs publishing cluster summaries.
func (l *Logger) LogPublish(ctx context.Context, target string, clusters int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"target", target,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "summaries published",
		"target", target,
		"clusters", clusters,
	)
}
