package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront-reviews/internal/service"
	"github.com/utafrali/storefront-reviews/pkg/health"
	"github.com/utafrali/storefront-reviews/pkg/middleware"
)

const defaultRequestTimeout = 60 * time.Second

// RouterConfig carries the HTTP-layer settings.
type RouterConfig struct {
	ServiceName        string
	CORSAllowedOrigins []string
	PprofAllowedCIDRs  []string
	SubmitRateLimitRPS float64
	SubmitRateBurst    int
	// RequestTimeout bounds each request, including the analyzer call.
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with the review page, the JSON API and the
// operational endpoints.
func NewRouter(
	reviewService *service.ReviewPageService,
	sessions *Sessions,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName, "productId"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	submitLimit := middleware.RateLimit(cfg.SubmitRateLimitRPS, cfg.SubmitRateBurst, SessionKey, logger)

	pages := NewPageHandler(reviewService, logger)
	r.Route("/products/{productId}/review", func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Use(middleware.RequestLogger(logger))

		r.Get("/", pages.Show)
		r.With(submitLimit).Post("/", pages.Submit)
		r.Post("/rating", pages.SelectRating)
		r.Post("/comment", pages.EditComment)
	})

	api := NewReviewAPIHandler(reviewService, logger)
	r.Route("/api/v1/products/{productId}/reviews", func(r chi.Router) {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))
		r.Use(middleware.RequestLogger(logger))
		r.Use(ContentTypeJSON)

		r.With(middleware.CacheControl("public, max-age=30")).Get("/", api.ListReviews)
		r.With(submitLimit).Post("/", api.CreateReview)
	})

	return r
}
