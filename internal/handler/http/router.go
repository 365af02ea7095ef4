package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/einarr2o12/review-service/internal/service"
	"github.com/einarr2o12/review-service/pkg/health"
	"github.com/einarr2o12/review-service/pkg/httputil"
	"github.com/einarr2o12/review-service/pkg/middleware"
)

const serviceName = "review"

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
	corsOrigins []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(corsOrigins)))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	r.NotFound(httputil.NotFound)
	r.MethodNotAllowed(httputil.MethodNotAllowed)

	// Health check endpoints
	r.Get("/health", HealthHandler(reviewService, logger))
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviewService, logger)
	registerReviewRoutes(r, reviewHandler)

	return r
}

// registerReviewRoutes mounts the review API. Ids must be decimal digits;
// anything else falls through to the 404 handler.
func registerReviewRoutes(r chi.Router, h *ReviewHandler) {
	r.Route("/api/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)
		r.Post("/", h.CreateReview)
		r.Get("/{id:[0-9]+}", h.GetReview)
		r.Put("/{id:[0-9]+}", h.UpdateReview)
		r.Delete("/{id:[0-9]+}", h.DeleteReview)
	})
	r.Get("/api/products/{product_id:[0-9]+}/reviews", h.ListProductReviews)
}
