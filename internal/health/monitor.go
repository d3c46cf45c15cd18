// Package health reports cache liveness for the diagnostic endpoints.
package health

import (
	"context"

	"searchrank/internal/models"
)

// StatusSource is implemented by the cache.
type StatusSource interface {
	Status(ctx context.Context) models.CacheStatus
}

// Monitor passes cache status through; it holds no state of its own.
type Monitor struct {
	cache StatusSource
}

// NewMonitor creates a monitor over the cache.
func NewMonitor(cache StatusSource) *Monitor {
	return &Monitor{cache: cache}
}

// Status returns the cache's current status.
func (m *Monitor) Status(ctx context.Context) models.CacheStatus {
	return m.cache.Status(ctx)
}

// Healthy reports whether the cache is reachable and serving fresh data.
func (m *Monitor) Healthy(ctx context.Context) bool {
	st := m.cache.Status(ctx)
	return st.Connected && !st.Stale
}
