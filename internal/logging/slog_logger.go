package logging

// file: internal/logging/slog_logger.go

import (
	"context"
	"log/slog"
)

// SlogLogger implements Logger on top of the standard library's structured
// logger. It is the engine's default production Logger; NoopLogger remains
// available for tests and for embedders who want silence.
type SlogLogger struct {
	base *slog.Logger
}

// NewSlogLogger wraps h as a Logger. A nil handler uses slog's default
// handler.
func NewSlogLogger(h slog.Handler) *SlogLogger {
	if h == nil {
		return &SlogLogger{base: slog.Default()}
	}
	return &SlogLogger{base: slog.New(h)}
}

// Debug implements Logger.
func (l *SlogLogger) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }

// Info implements Logger.
func (l *SlogLogger) Info(msg string, args ...any) { l.base.Info(msg, args...) }

// Warn implements Logger.
func (l *SlogLogger) Warn(msg string, args ...any) { l.base.Warn(msg, args...) }

// Error implements Logger.
func (l *SlogLogger) Error(msg string, args ...any) { l.base.Error(msg, args...) }

// WithContext returns a logger carrying the fields contextArgs extracts from
// ctx. contextArgs extracts none, so the result logs like l.
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	return &SlogLogger{base: l.base.With(contextArgs(ctx)...)}
}

// WithField returns a logger with an additional structured field attached
// to every subsequent record.
func (l *SlogLogger) WithField(key string, value any) Logger {
	return &SlogLogger{base: l.base.With(key, value)}
}

// contextArgs extracts nothing by default; it exists as the seam a caller
// can widen (e.g. to pull a request id out of ctx) without touching every
// call site.
func contextArgs(_ context.Context) []any {
	return nil
}
