// Package cache publishes ranking snapshots to a fast key/value backend and
// serves the popular and recent views from it.
package cache

import (
	"context"
	"errors"
	"time"

	"searchrank/internal/models"
)

// Cache error sentinels.
var (
	// ErrCacheUnavailable means the backend is unreachable or the cached
	// snapshot is known to be behind the live state.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrCacheMiss means no usable snapshot is cached.
	ErrCacheMiss = errors.New("cache miss")
)

// Backend is the key/value store holding the serialized snapshot. A missing
// key is reported as a nil value with a nil error.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Source supplies snapshots of the live ranking state.
type Source interface {
	// Generation returns the number of mutations applied so far.
	Generation() uint64
	// Snapshot builds a snapshot of at most size keywords per view. The
	// snapshot's Generation must be read before the structures are.
	Snapshot(size int) models.Snapshot
}

// Store is the read and maintenance contract the service uses.
type Store interface {
	Get(ctx context.Context, view models.View, limit int) ([]models.Keyword, error)
	Peek(ctx context.Context) error
	Refresh(ctx context.Context, src Source) error
	ForceRefresh(ctx context.Context, src Source) error
	Invalidate(ctx context.Context) error
	Status(ctx context.Context) models.CacheStatus
}
