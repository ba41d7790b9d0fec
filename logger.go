package vecrecall

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/vecrecall/recall"
)

// Logger wraps slog.Logger with recall-run context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogIngestBatch logs one forwarded batch.
func (l *Logger) LogIngestBatch(ctx context.Context, offset uint64, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest batch failed",
			"offset", offset,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "ingest batch completed",
			"offset", offset,
			"size", size,
		)
	}
}

// LogCheckpoint logs an intermediate evaluation, and the snapshot id when one was saved.
func (l *Logger) LogCheckpoint(ctx context.Context, cp CheckpointResult, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"ingested", cp.Ingested,
			"error", err,
		)
		return
	}

	attrs := []any{"ingested", cp.Ingested}
	if cp.Summary != nil {
		attrs = append(attrs, "recall_mean", cp.Summary.Mean, "recall_min", cp.Summary.Min)
	}
	if cp.SnapshotID != 0 {
		attrs = append(attrs, "snapshot_id", cp.SnapshotID)
	}
	l.InfoContext(ctx, "checkpoint completed", attrs...)
}

// LogTrial logs a single recall trial.
func (l *Logger) LogTrial(ctx context.Context, query int, value float64, err error) {
	if err != nil {
		l.WarnContext(ctx, "trial search failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "trial completed",
			"query", query,
			"recall", value,
		)
	}
}

// LogSummary logs the aggregate of an evaluation.
func (l *Logger) LogSummary(ctx context.Context, trials, failed int, s recall.Summary) {
	if failed > 0 {
		l.WarnContext(ctx, "evaluation completed with failures",
			"trials", trials,
			"failed", failed,
			"summary", s.String(),
		)
	} else {
		l.InfoContext(ctx, "evaluation completed",
			"trials", trials,
			"summary", s.String(),
		)
	}
}
