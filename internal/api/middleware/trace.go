package middleware

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/platform/logger"
)

// TraceHeader carries the trace ID on responses and, optionally, requests.
const TraceHeader = "X-Trace-ID"

var traceIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewTraceMiddleware returns middleware that gives every request a trace
// ID and a logger carrying it. A well formed X-Trace-ID request header is
// reused so callers can correlate their own logs.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if incoming := r.Header.Get(TraceHeader); traceIDPattern.MatchString(incoming) {
				ctx = shared.WithTraceID(ctx, incoming)
			} else {
				ctx = shared.SetTraceID(ctx)
			}
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			w.Header().Set(TraceHeader, traceID)
			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
