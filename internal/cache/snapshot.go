package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"searchrank/internal/models"
)

// Config tunes a SnapshotCache.
type Config struct {
	Key          string
	TTL          time.Duration
	SnapshotSize int
	PingTimeout  time.Duration
}

// SnapshotCache is a write-through cache of the live rankings.
//
// Snapshots are published under publishMu, so they reach the backend in
// generation order and a published snapshot never regresses. Refresh skips
// publishing when the last published generation already covers the source.
// After a failed write the cache is flagged stale and Get refuses to serve
// until a later refresh succeeds.
type SnapshotCache struct {
	backend   Backend
	cfg       Config
	log       zerolog.Logger
	startedAt time.Time

	publishMu sync.Mutex

	mu          sync.RWMutex
	published   uint64
	hasSnapshot bool
	stale       bool
	connected   bool
	lastSync    time.Time
	itemCount   int
	lastErr     error

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSnapshotCache creates a cache over backend.
func NewSnapshotCache(backend Backend, cfg Config, logger zerolog.Logger) *SnapshotCache {
	if cfg.Key == "" {
		cfg.Key = "searchrank:snapshot"
	}
	if cfg.SnapshotSize <= 0 {
		cfg.SnapshotSize = 100
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = time.Second
	}
	return &SnapshotCache{
		backend:   backend,
		cfg:       cfg,
		log:       logger,
		startedAt: time.Now(),
		connected: true,
	}
}

// Get returns up to limit keywords of the view from the cached snapshot.
func (c *SnapshotCache) Get(ctx context.Context, view models.View, limit int) ([]models.Keyword, error) {
	snap, err := c.load()
	if err != nil {
		c.misses.Add(1)
		return nil, err
	}
	// A snapshot holding exactly SnapshotSize keywords may have been cut, so
	// it cannot answer a longer request.
	if limit > c.cfg.SnapshotSize && len(snap.Keywords(view, limit)) >= c.cfg.SnapshotSize {
		c.misses.Add(1)
		return nil, fmt.Errorf("%w: limit %d exceeds snapshot size %d", ErrCacheMiss, limit, c.cfg.SnapshotSize)
	}

	c.hits.Add(1)
	return snap.Keywords(view, limit), nil
}

// Peek reports whether a usable snapshot is cached without touching the hit
// and miss counters.
func (c *SnapshotCache) Peek(ctx context.Context) error {
	_, err := c.load()
	return err
}

func (c *SnapshotCache) load() (*models.Snapshot, error) {
	// Read the published generation before the backend: anything written
	// afterwards can only be newer.
	c.mu.RLock()
	stale, published := c.stale, c.published
	c.mu.RUnlock()

	if stale {
		return nil, fmt.Errorf("%w: snapshot is stale", ErrCacheUnavailable)
	}

	data, err := c.backend.Get(c.cfg.Key)
	if err != nil {
		c.setConnected(false, err)
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	c.setConnected(true, nil)

	if len(data) == 0 {
		// Expired, flushed or lost on a restart: let the next Refresh
		// republish.
		c.forget()
		return nil, ErrCacheMiss
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.forget()
		return nil, fmt.Errorf("%w: corrupt snapshot: %v", ErrCacheMiss, err)
	}
	if snap.Generation < published {
		c.forget()
		return nil, fmt.Errorf("%w: snapshot generation %d behind %d", ErrCacheMiss, snap.Generation, published)
	}
	return &snap, nil
}

func (c *SnapshotCache) forget() {
	c.mu.Lock()
	c.hasSnapshot = false
	c.itemCount = 0
	c.mu.Unlock()
}

// Refresh publishes a snapshot of src unless the cached one already covers
// its current generation.
func (c *SnapshotCache) Refresh(ctx context.Context, src Source) error {
	return c.refresh(ctx, src, false)
}

// ForceRefresh always publishes a fresh snapshot of src.
func (c *SnapshotCache) ForceRefresh(ctx context.Context, src Source) error {
	return c.refresh(ctx, src, true)
}

func (c *SnapshotCache) refresh(ctx context.Context, src Source, force bool) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if !force {
		gen := src.Generation()
		c.mu.RLock()
		covered := c.hasSnapshot && !c.stale && c.published >= gen
		c.mu.RUnlock()
		if covered {
			return nil
		}
	}

	snap := src.Snapshot(c.cfg.SnapshotSize)
	return c.publish(&snap)
}

// publish must be called with publishMu held.
func (c *SnapshotCache) publish(snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.backend.Set(c.cfg.Key, data, c.cfg.TTL); err != nil {
		c.mu.Lock()
		c.stale = true
		c.connected = false
		c.lastErr = err
		c.mu.Unlock()
		c.log.Warn().Err(err).Uint64("generation", snap.Generation).Msg("cache write failed, serving live state until next refresh")
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	c.mu.Lock()
	wasStale := c.stale
	if snap.Generation > c.published {
		c.published = snap.Generation
	}
	c.hasSnapshot = true
	c.stale = false
	c.connected = true
	c.lastErr = nil
	c.lastSync = time.Now()
	c.itemCount = snap.ItemCount()
	c.mu.Unlock()

	if wasStale {
		c.log.Info().Uint64("generation", snap.Generation).Msg("cache recovered")
	}
	return nil
}

// Invalidate removes the cached snapshot. The next Refresh republishes it.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if err := c.backend.Delete(c.cfg.Key); err != nil {
		c.setConnected(false, err)
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	c.mu.Lock()
	c.hasSnapshot = false
	c.itemCount = 0
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Status reports connectivity and counters. Connectivity is probed live.
func (c *SnapshotCache) Status(ctx context.Context) models.CacheStatus {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.PingTimeout)
	defer cancel()
	pingErr := c.backend.Ping(pingCtx)
	c.setConnected(pingErr == nil, pingErr)

	c.mu.RLock()
	defer c.mu.RUnlock()

	st := models.CacheStatus{
		Connected:  c.connected,
		Stale:      c.stale,
		ItemCount:  c.itemCount,
		Generation: c.published,
		LastSync:   c.lastSync,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Uptime:     time.Since(c.startedAt).Round(time.Second).String(),
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}

// Close releases the backend.
func (c *SnapshotCache) Close() error {
	return c.backend.Close()
}

func (c *SnapshotCache) setConnected(ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = ok
	if err != nil {
		c.lastErr = err
	} else if !c.stale {
		c.lastErr = nil
	}
}
