package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"searchrank/internal/handlers/api"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(search *api.SearchHandler, probes *api.ProbeHandler, gatherer prometheus.Gatherer) {
	// Probes
	s.App.Get("/healthz", probes.Liveness)
	s.App.Get("/readyz", probes.Readiness)

	// Prometheus scrape endpoint
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Search API
	search.Register(s.App.Group("/api/search"))
}
