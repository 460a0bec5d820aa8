package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level is a slog level; only the four below are used.
type Level = slog.Level

const (
	LevelError = slog.LevelError
	LevelWarn  = slog.LevelWarn
	LevelInfo  = slog.LevelInfo
	LevelDebug = slog.LevelDebug
)

// ParseLevel maps a config value to a Level. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger formats printf-style messages onto a levelled slog.Logger.
// A nil *Logger discards everything.
type Logger struct {
	out *slog.Logger
}

// New returns a Logger writing text records to w at or above level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{out: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return &Logger{out: slog.New(slog.DiscardHandler)}
}

// Slog exposes the underlying logger for callers that log with attributes.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.out
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	ctx := context.Background()
	if !l.out.Enabled(ctx, level) {
		return
	}
	l.out.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
