// Package logger provides structured logging for the application using the
// standard library's log/slog, plus helpers for carrying a request-scoped
// logger through a context.Context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/retainapp/retain-api/internal/config"
)

// contextKey is an unexported type to avoid context key collisions.
type contextKey struct{}

// loggerKey is the context key under which the request logger is stored.
var loggerKey = contextKey{}

// Setup initializes the application's logging system from configuration.
// It creates a JSON slog logger at the configured level, installs it as
// the process default, and returns it.
func Setup(cfg config.ServerConfig) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// parseLevel maps a config string to a slog level, defaulting to info and
// warning about unrecognized values.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("invalid log level configured, using default level",
			"configured_level", s,
			"default_level", "info")
		return slog.LevelInfo
	}
}

// WithLogger returns a context carrying the given logger. Handlers and
// middleware use this to propagate a logger enriched with request
// attributes (trace ID, component) down the call stack.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the logger from the context, falling back to the
// process default when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger from the context, falling back
// to the provided logger (typically a component-scoped one) when none was
// attached.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
