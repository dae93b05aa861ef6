package octogo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with octogo-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithModel adds a model field to the logger.
func (l *Logger) WithModel(model string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", model),
	}
}

// LogLoad logs the rehydration of a model.
func (l *Logger) LogLoad(ctx context.Context, model string, rows int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"model", model,
			"rows", rows,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "model loaded",
		"model", model,
		"rows", rows,
		"duration", d,
	)
}

// LogBuild logs a batch build.
func (l *Logger) LogBuild(ctx context.Context, model string, elements, cells int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"model", model,
			"elements", elements,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"model", model,
		"elements", elements,
		"cells", cells,
		"duration", d,
	)
}

// LogQuery logs a solid query.
func (l *Logger) LogQuery(ctx context.Context, model string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"model", model,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "query completed",
		"model", model,
		"results", results,
	)
}

// LogSave logs a snapshot save.
func (l *Logger) LogSave(ctx context.Context, model string, version uint64, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"model", model,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot saved",
		"model", model,
		"version", version,
		"rows", rows,
	)
}
