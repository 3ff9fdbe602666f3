// Package api provides the HTTP surface of the crawler worker.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/api/handler"
	"github.com/cropi/cropi/internal/api/middleware"
	"github.com/cropi/cropi/internal/provider/resilience"
)

// Runner queues jobs and reports their counters. *worker.Runner implements it.
type Runner interface {
	handler.Dispatcher
	handler.JobStats
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics
	Registry    *resilience.Registry
	Runner      Runner

	// JobRateLimit overrides middleware.JobRateLimit.
	JobRateLimit *middleware.RateLimitConfig
}

// NewRouter creates the worker router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cropi-worker"
	}
	jobLimit := middleware.JobRateLimit
	if cfg.JobRateLimit != nil {
		jobLimit = *cfg.JobRateLimit
	}

	// Order matters: the request ID must exist before tracing and logging.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ContentTypeJSON)

	var stats handler.JobStats
	if cfg.Runner != nil {
		stats = cfg.Runner
	}
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, stats)

	r.Get("/health", opsHandler.HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/providers", opsHandler.Providers)
			r.Get("/status", opsHandler.SystemStatus)
		})

		if cfg.Runner == nil {
			return
		}
		jobsHandler := handler.NewJobsHandler(cfg.Runner, cfg.Logger)
		jobRateLimit := middleware.RateLimitByIP(jobLimit)

		r.Route("/jobs", func(r chi.Router) {
			r.Use(jobRateLimit)
			r.Post("/risk-probability", jobsHandler.RiskProbability)
			r.Post("/station-catalog", jobsHandler.StationCatalog)
		})

		r.Route("/occurrences/{occurrenceId}", func(r chi.Router) {
			r.Use(jobRateLimit)
			r.Post("/notify", jobsHandler.NotifyOccurrence)
			r.Post("/climate", jobsHandler.OccurrenceClimate)
		})
	})

	return r
}
