package vdb

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vdb-specific context.
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
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogAppend logs an append operation.
func (l *Logger) LogAppend(id string, dimension int, err error) {
	if err != nil {
		l.Error("append failed",
			"id", id,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.Debug("append completed",
			"id", id,
			"dimension", dimension,
		)
	}
}

// LogRecovery logs a WAL recovery outcome.
func (l *Logger) LogRecovery(replayed uint64, err error) {
	if err != nil {
		l.Error("WAL recovery failed",
			"entries_replayed", replayed,
			"error", err,
		)
	} else {
		l.Info("WAL recovery completed",
			"entries_replayed", replayed,
		)
	}
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(key string, err error) {
	if err != nil {
		l.Error("snapshot failed",
			"key", key,
			"error", err,
		)
	} else {
		l.Info("snapshot saved",
			"key", key,
		)
	}
}
