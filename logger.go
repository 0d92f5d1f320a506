package tierkv

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/tierkv/core"
)

// Logger wraps slog.Logger with tierkv-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithDB adds a database id field to the logger.
func (l *Logger) WithDB(db core.DBID) *Logger {
	return &Logger{
		Logger: l.Logger.With("db", int(db)),
	}
}

// WithTable adds a table id field to the logger.
func (l *Logger) WithTable(table int) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", table),
	}
}

// WithPolicy adds the eviction policy to the logger.
func (l *Logger) WithPolicy(policy core.EvictionPolicy) *Logger {
	return &Logger{
		Logger: l.Logger.With("policy", policy.String()),
	}
}

// LogTiering logs one batch tiering pass.
func (l *Logger) LogTiering(ctx context.Context, db core.DBID, moved int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch tiering failed",
			"db", int(db),
			"moved", moved,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "batch tiering completed",
			"db", int(db),
			"moved", moved,
		)
	}
}

// LogReclaim logs one reclamation cycle.
func (l *Logger) LogReclaim(ctx context.Context, db core.DBID, freed int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "reclamation gave up",
			"db", int(db),
			"freed", freed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "reclamation completed",
			"db", int(db),
			"freed", freed,
		)
	}
}

// LogColdRead logs a read served from the cold store.
func (l *Logger) LogColdRead(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cold read failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "cold read completed",
			"key", key,
		)
	}
}

// LogScan logs a relational scan.
func (l *Logger) LogScan(ctx context.Context, table, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "scan failed",
			"table", table,
			"rows", rows,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "scan completed",
			"table", table,
			"rows", rows,
		)
	}
}
