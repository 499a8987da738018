// Package logging builds the process-wide *slog.Logger.
//
// Two formats:
//
//	text  colored, human-readable lines via tint (local development)
//	json  one JSON object per line via slog.JSONHandler (log shippers)
//
// The logger is injected everywhere it is used and also installed as the
// slog default, so package-level slog calls share the same handler.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger writing to w at level in the given format.
// Any format other than "json" selects text.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    !isTerminal(w),
		})
	}
	return slog.New(h)
}

// Setup builds a logger with New and makes it the slog default.
func Setup(w io.Writer, level slog.Level, format string) *slog.Logger {
	logger := New(w, level, format)
	slog.SetDefault(logger)
	return logger
}
