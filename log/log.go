// Package log is a thin structured-logging wrapper over log/slog, matching
// the call shape used across the federation core: a message followed by
// alternating key/value pairs.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Logger wraps a *slog.Logger; the root logger's handler may be swapped with
// SetHandler.
type Logger struct {
	s *slog.Logger
}

var root = &Logger{s: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))}

// SetHandler replaces the root logger's slog.Handler, e.g. to switch to JSON
// output or to raise the minimum level.
func SetHandler(h slog.Handler) {
	root = &Logger{s: slog.New(h)}
}

// Root returns the process-wide root logger.
func Root() *Logger { return root }

// New returns a child logger with ctx key/values bound to every record.
func New(ctx ...any) *Logger {
	return &Logger{s: root.s.With(ctx...)}
}

func (l *Logger) With(ctx ...any) *Logger {
	return &Logger{s: l.s.With(ctx...)}
}

func (l *Logger) Trace(msg string, ctx ...any) { l.s.Debug(msg, ctx...) }
func (l *Logger) Debug(msg string, ctx ...any) { l.s.Debug(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...any)  { l.s.Info(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.s.Warn(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...any) { l.s.Error(msg, ctx...) }

// Crit logs at the highest severity then terminates the process; reserved
// for unrecoverable startup failures.
func (l *Logger) Crit(msg string, ctx ...any) {
	l.s.Error(msg, ctx...)
	os.Exit(1)
}

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }

// WithContext extracts a per-request logger stashed on ctx with IntoContext,
// falling back to the root logger.
func WithContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return root
}

type ctxKey struct{}

// IntoContext returns a derived context carrying l as the contextual logger.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Lazy formats msg/args only if ever stringified; used to guard expensive
// debug arguments from being computed when the log level wouldn't emit
// them.
type Lazy struct {
	Fn func() string
}

func (l Lazy) String() string {
	if l.Fn == nil {
		return ""
	}
	return l.Fn()
}

var _ fmt.Stringer = Lazy{}
