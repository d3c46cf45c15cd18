package api

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Pinger is implemented by the persistent store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the cache is usable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// ProbeHandler handles Kubernetes health probe endpoints.
type ProbeHandler struct {
	store Pinger
	cache HealthChecker
}

// NewProbeHandler creates a new probe handler. store may be nil when no
// persistent store is configured.
func NewProbeHandler(store Pinger, cache HealthChecker) *ProbeHandler {
	return &ProbeHandler{store: store, cache: cache}
}

// Liveness handles /healthz. It returns 200 while the process is running.
func (h *ProbeHandler) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness handles /readyz. The in-memory rankings can always serve, so a
// degraded cache or store is reported without failing the probe; only an
// unreachable configured store returns 503.
func (h *ProbeHandler) Readiness(c fiber.Ctx) error {
	if h.store != nil {
		if err := h.store.Ping(c.Context()); err != nil {
			return jsonError(c, fiber.StatusServiceUnavailable, "database unavailable")
		}
	}

	return jsonSuccess(c, fiber.Map{
		"store_configured": h.store != nil,
		"cache_healthy":    h.cache.Healthy(c.Context()),
	})
}
