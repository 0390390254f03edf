package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"permguard-lab/internal/api/handlers"
	apimiddleware "permguard-lab/internal/api/middleware"
	"permguard-lab/internal/config"
	"permguard-lab/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.RateLimitChecker
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter may be nil, which
// disables rate limiting regardless of configuration.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.RateLimitChecker, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		logger:   log.WithComponent("router"),
	}
}

// defaultRequestTimeout applies when no write timeout is configured
const defaultRequestTimeout = 60 * time.Second

// requestTimeout keeps the handler deadline inside the server's write
// deadline so the 504 can still reach the client.
func requestTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.WriteTimeout <= 0 {
		return defaultRequestTimeout
	}
	if timeout := cfg.WriteTimeout - time.Second; timeout >= time.Second {
		return timeout
	}
	return cfg.WriteTimeout
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		ExposedHeaders:   []string{handlers.ReportIDHeader},
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)

		// long-lived; stays outside the request timeout
		pub.Get("/ws/reports", r.handlers.Streaming.HandleWebSocket)
	})

	// API v1 routes
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout(r.config.Server)))
		api.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKeys))

		if r.config.RateLimit.Enabled && r.limiter != nil {
			api.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}

		api.Post("/score", r.handlers.Reports.Score)

		api.Route("/reports", func(reports chi.Router) {
			reports.Post("/", r.handlers.Reports.Generate)
			reports.Get("/{id}", r.handlers.Reports.Get)
			reports.Post("/{id}/transmit", r.handlers.Reports.Transmit)
		})

		api.Get("/permissions/dangerous", r.handlers.Permissions.GetDangerous)

		api.Get("/stats", r.handlers.Stats.Get)
		api.Get("/streaming/stats", r.handlers.Streaming.GetStats)
	})

	return router
}
