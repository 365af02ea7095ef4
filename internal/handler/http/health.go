package http

import (
	"log/slog"
	"net/http"

	"github.com/einarr2o12/review-service/internal/service"
	"github.com/einarr2o12/review-service/pkg/httputil"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HealthHandler reports whether the review store answers a trivial read. It
// does not look at the product service.
func HealthHandler(svc *service.ReviewService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckHealth(r.Context()); err != nil {
			logger.ErrorContext(r.Context(), "health check failed", slog.String("error", err.Error()))
			httputil.WriteJSON(w, http.StatusInternalServerError, HealthResponse{Status: "DOWN", Error: err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "UP", Database: "connected"})
	}
}
