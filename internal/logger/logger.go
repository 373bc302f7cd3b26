// Package logger provides a configured structured logger for the
// application. It wraps "log/slog" so every service emits the same format
// (JSON in production, text in development) with consistent identity
// attributes.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/rafaeljc/mimir/internal/config"
)

// New creates a new *slog.Logger instance based on the provided config,
// writing to os.Stdout.
func New(cfg *config.AppConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a new *slog.Logger writing to the given io.Writer.
// Useful for tests and custom output destinations.
func NewWithWriter(cfg *config.AppConfig, w io.Writer) *slog.Logger {
	if cfg == nil {
		panic("logger: config cannot be nil")
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
		// file:line attribution is cheap enough outside production
		AddSource: cfg.Environment != config.EnvironmentProduction,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		// JSON is the safe default for log shippers
		handler = slog.NewJSONHandler(w, opts)
	}

	// Identity attributes appear on every line this logger or its children emit.
	return slog.New(handler).With(
		slog.String("service", cfg.Name),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Environment),
	)
}

// parseLevel converts a string to slog.Level. Defaults to INFO.
func parseLevel(s string) slog.Level {
	var level slog.Level
	// UnmarshalText handles case insensitivity (INFO, info, Info)
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
