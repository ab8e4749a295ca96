// Package middleware provides HTTP middleware for the API: trace-ID
// injection and bearer-token authentication.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/platform/logger"
)

// NewTraceMiddleware returns middleware that attaches a trace ID to the
// request context and a trace-scoped logger for downstream handlers.
// Apply it early so every handler and error response can correlate logs.
func NewTraceMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			requestLog := log.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, requestLog)

			requestLog.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
