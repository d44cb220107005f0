// Package logging configures the process-wide structured logger backed by
// log/slog. Components obtain their own loggers via
// slog.Default().With("component", ...).
package logging

import (
	"io"
	"log/slog"
	"os"

	"mercator-hq/themis/pkg/config"
)

// Setup builds a slog.Logger from the logging configuration, installs it as
// the process default, and returns it. Unknown levels fall back to info and
// unknown formats fall back to JSON.
func Setup(cfg config.LoggingConfig) *slog.Logger {
	return SetupWithWriter(cfg, os.Stdout)
}

// SetupWithWriter is Setup with an explicit output writer.
func SetupWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a configuration level string to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
