package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/observability"
	"github.com/triagemhq/triagemd/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Pipefy webhook intake
	if s.webhookHandler != nil {
		s.router.Post("/webhooks/pipefy", s.webhookHandler.Handle)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.cnpjHandler != nil {
			r.Route("/cnpj", func(r chi.Router) {
				r.Get("/{cnpj}", s.cnpjHandler.Resolve)
				r.Get("/{cnpj}/card", s.cnpjHandler.Card)
				r.Get("/providers", s.cnpjHandler.Providers)
				r.Get("/metrics", s.cnpjHandler.Metrics)
				r.Post("/admin/cache/clear", s.cnpjHandler.ClearCache)
				r.Post("/admin/metrics/clear", s.cnpjHandler.ClearMetrics)
				r.Post("/admin/breakers/reset", s.cnpjHandler.ResetBreakers)
			})
		}

		if s.recipientHandler != nil {
			r.Route("/recipients", func(r chi.Router) {
				r.Post("/", s.recipientHandler.Create)
				r.Get("/", s.recipientHandler.List)
				r.Get("/{id}", s.recipientHandler.Get)
				r.Patch("/{id}", s.recipientHandler.Update)
				r.Delete("/{id}", s.recipientHandler.Delete)
				r.Post("/{id}/activate", s.recipientHandler.Activate)
				r.Post("/{id}/deactivate", s.recipientHandler.Deactivate)
			})
		}
	})

	// Admin signal endpoint (optional, requires TRIAGEMD_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv(config.EnvPrefix + "_ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + config.EnvPrefix + "_ADMIN_TOKEN set)")
		}
		return
	}

	// HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil, // default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
