// Package logger provides context-aware structured logging built on logrus.
// Components pull a logger entry out of the context so that run, round and
// task identifiers attached upstream show up on every line downstream.
package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// G is shorthand for GetLogger.
	G = GetLogger
	// L is the global fallback entry used when the context carries no logger.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger returns a context carrying the given logger entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// GetLogger returns the logger entry stored in ctx, or the global entry L
// with ctx attached when none is stored.
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

// SetLevel sets the level of the global logger. Accepts any level name
// understood by logrus ("debug", "info", "warn", ...).
func SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(parsed)
	return nil
}

// SetFormat switches the global logger between "text" and "json" output.
func SetFormat(format string) {
	switch format {
	case "json":
		L.Logger.Formatter = &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		}
	default:
		L.Logger.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		}
	}
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339Nano,
		FullTimestamp:   true,
	}
	return l
}
