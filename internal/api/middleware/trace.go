package middleware

import (
	"log/slog"
	"net/http"

	"github.com/datemate/taskpoll/internal/api/shared"
	"github.com/datemate/taskpoll/internal/platform/logger"
)

// NewTraceMiddleware adds a trace ID to every request and stores a logger
// carrying it in the request context. Apply it before any handler that logs
// or writes error responses.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
