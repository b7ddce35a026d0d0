package middleware

import (
	"log/slog"
	"net/http"

	"github.com/aleber123/nytt-sub001/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, draft_id, trace_id and span_id. Handlers fetch it with
// logger.FromContext.
//
// Mount it after RequestLogging and Tracing. Routes guarded by DraftToken
// get a second enrichment there, once the draft is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
