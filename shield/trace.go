package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/domstate/idgen"
	"github.com/hazyhaar/domstate/kit"
)

var newTraceID = idgen.Prefixed("trc_", idgen.Default)

// TraceID stamps each request with a trace id, honouring an incoming
// X-Request-ID as the request id. Both ids land in the context (kit keys),
// the response headers and a per-request logger stored under LoggerKey.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := newTraceID()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = traceID
		}

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = kit.WithRequestID(ctx, reqID)
		w.Header().Set("X-Trace-ID", traceID)
		w.Header().Set("X-Request-ID", reqID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
