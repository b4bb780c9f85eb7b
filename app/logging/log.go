// Package logging builds the service logger and carries it on request
// contexts.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a logger with timestamps that writes to w and filters
// messages below level.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
		Level:           level,
	})
}

// Output returns the writer logs go to, stderr or a size-rotated file when
// file is set, and a function that releases it. Releasing stderr does
// nothing.
func Output(file string) (io.Writer, func() error) {
	if file == "" {
		return os.Stderr, func() error { return nil }
	}
	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	return lj, lj.Close
}

// ParseLevel maps a configured level name to a log level.
func ParseLevel(s string) (log.Level, error) {
	return log.ParseLevel(s)
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx, or log.Default() when
// there is none.
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
