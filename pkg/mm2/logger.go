package mm2

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with alignment-specific helpers so field names
// stay consistent across the package.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// LogIndexLoaded logs the outcome of an index load.
func (l *Logger) LogIndexLoaded(ctx context.Context, path string, parts, refs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index load failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index loaded",
		"path", path,
		"parts", parts,
		"references", refs,
	)
}

// LogBatch logs the outcome of a batch alignment.
func (l *Logger) LogBatch(ctx context.Context, queries, workers int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch alignment failed",
			"queries", queries,
			"workers", workers,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "batch alignment completed",
		"queries", queries,
		"workers", workers,
	)
}

// LogSkippedRecord logs a register that could not be translated.
func (l *Logger) LogSkippedRecord(ctx context.Context, query string, part int, err error) {
	l.DebugContext(ctx, "skipping register",
		"query", query,
		"part", part,
		"error", err,
	)
}
