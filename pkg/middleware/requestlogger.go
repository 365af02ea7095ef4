package middleware

import (
	"log/slog"
	"net/http"

	"github.com/einarr2o12/review-service/pkg/logger"
)

// RequestLogger stores a logger carrying correlation_id, trace_id and span_id
// in the request context. Mount it after RequestLogging and Tracing so both
// values are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
