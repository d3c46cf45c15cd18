// Package search records search submissions and serves the popular and
// recent keyword views.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"searchrank/internal/cache"
	"searchrank/internal/logging"
	"searchrank/internal/metrics"
	"searchrank/internal/models"
	"searchrank/internal/ranking"
	"searchrank/internal/validation"
)

// Forwarder accepts events for best-effort delivery to the persistent store.
// Enqueue must not block; it reports false when the event was dropped.
type Forwarder interface {
	Enqueue(event models.SearchEvent) bool
}

// Loader reads persisted rankings for warm start.
type Loader interface {
	TopKeywordsByCount(ctx context.Context, limit int) ([]models.PopularityEntry, error)
	RecentKeywords(ctx context.Context, limit int) ([]models.RecencyEntry, error)
}

// Options configures a Service.
type Options struct {
	MaxLimit int
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger

	// Clock stamps accepted searches. It is wrapped with ranking.Monotonic.
	Clock ranking.Clock
}

// Service owns the popularity ranker and recency tracker for the process.
// The ranker and tracker are authoritative for serving; the cache holds
// derived snapshots and the persistent store is fed best-effort.
type Service struct {
	popular  *ranking.PopularityRanker
	recent   *ranking.RecencyTracker
	cache    cache.Store
	forward  Forwarder
	metrics  *metrics.Metrics
	log      zerolog.Logger
	maxLimit int

	// recordMu orders searches identically in the ranker, the tracker and
	// the forwarded events.
	recordMu sync.Mutex
	clock    ranking.Clock

	gen atomic.Uint64
	sf  singleflight.Group
}

// NewService wires the tracking structures to the cache and forwarder.
// forward may be nil when no persistent store is configured.
func NewService(popular *ranking.PopularityRanker, recent *ranking.RecencyTracker, store cache.Store, forward Forwarder, opts Options) *Service {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.Clock == nil {
		opts.Clock = ranking.SystemClock
	}
	return &Service{
		popular:  popular,
		recent:   recent,
		cache:    store,
		forward:  forward,
		metrics:  opts.Metrics,
		log:      logging.Component(opts.Logger, "search"),
		maxLimit: opts.MaxLimit,
		clock:    ranking.Monotonic(opts.Clock),
	}
}

// Record accepts one search submission. Only a ValidationError is returned;
// cache and store failures degrade silently once the in-memory state has been
// updated.
func (s *Service) Record(ctx context.Context, raw string) (models.Keyword, error) {
	keyword, err := validation.NormalizeKeyword(raw)
	if err != nil {
		s.metrics.Search(metrics.SearchRejected)
		return "", err
	}

	s.recordMu.Lock()
	at := s.clock()
	entry := s.popular.IncrementAt(keyword, at)
	s.recent.PushAt(keyword, at)
	// The generation is bumped only after both structures changed, so any
	// snapshot claiming this generation includes this search.
	s.gen.Add(1)
	s.recordMu.Unlock()
	s.metrics.Search(metrics.SearchAccepted)

	if err := s.cache.Refresh(ctx, s); err != nil {
		log := s.logger(ctx)
		log.Warn().Err(err).Str(logging.FieldKeyword, string(keyword)).Msg("cache refresh failed, reads fall back to live state")
	}

	if s.forward != nil {
		event := models.SearchEvent{Keyword: keyword, SearchedAt: entry.LastUpdated}
		if !s.forward.Enqueue(event) {
			log := s.logger(ctx)
			log.Warn().Str(logging.FieldKeyword, string(keyword)).Msg("store forward dropped")
		}
	}

	return keyword, nil
}

// PopularKeywords returns up to limit keywords by popularity and the source
// that served them.
func (s *Service) PopularKeywords(ctx context.Context, limit int) ([]models.Keyword, string) {
	return s.read(ctx, models.ViewPopular, limit)
}

// RecentKeywords returns up to limit keywords by recency and the source that
// served them.
func (s *Service) RecentKeywords(ctx context.Context, limit int) ([]models.Keyword, string) {
	return s.read(ctx, models.ViewRecent, limit)
}

// Keywords serves any view.
func (s *Service) Keywords(ctx context.Context, view models.View, limit int) ([]models.Keyword, string, error) {
	if _, err := models.ParseView(string(view)); err != nil {
		return nil, "", err
	}
	kws, source := s.read(ctx, view, limit)
	return kws, source, nil
}

func (s *Service) read(ctx context.Context, view models.View, limit int) ([]models.Keyword, string) {
	limit = s.clamp(limit)
	if limit == 0 {
		return []models.Keyword{}, models.SourceLive
	}

	kws, err := s.cache.Get(ctx, view, limit)
	if err == nil {
		s.metrics.CacheRead(view, models.SourceCache)
		return kws, models.SourceCache
	}

	if errors.Is(err, cache.ErrCacheMiss) {
		s.refreshOnce(ctx)
	} else {
		log := s.logger(ctx)
		log.Warn().Err(err).Str(logging.FieldView, string(view)).Msg("cache read failed, serving live state")
	}

	s.metrics.CacheRead(view, models.SourceLive)
	return s.Live(view, limit), models.SourceLive
}

// refreshOnce republishes the snapshot after a miss, with concurrent misses
// sharing one refresh.
func (s *Service) refreshOnce(ctx context.Context) {
	_, err, _ := s.sf.Do("refresh", func() (interface{}, error) {
		return nil, s.cache.Refresh(ctx, s)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("cache refresh after miss failed")
	}
}

// logger prefers the request scoped logger carried by ctx.
func (s *Service) logger(ctx context.Context) zerolog.Logger {
	if l, ok := logging.FromContext(ctx); ok {
		return logging.Component(l, "search")
	}
	return s.log
}

// Live reads a view directly from the ranker or tracker.
func (s *Service) Live(view models.View, limit int) []models.Keyword {
	limit = s.clamp(limit)
	switch view {
	case models.ViewPopular:
		return s.popular.TopK(limit)
	case models.ViewRecent:
		return s.recent.TopN(limit)
	default:
		return []models.Keyword{}
	}
}

func (s *Service) clamp(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Generation implements cache.Source.
func (s *Service) Generation() uint64 {
	return s.gen.Load()
}

// Snapshot implements cache.Source.
func (s *Service) Snapshot(size int) models.Snapshot {
	gen := s.gen.Load()
	return models.Snapshot{
		Popular:     s.popular.TopK(size),
		Recent:      s.recent.TopN(size),
		Generation:  gen,
		GeneratedAt: time.Now().UTC(),
	}
}

// RefreshCache republishes the snapshot unconditionally.
func (s *Service) RefreshCache(ctx context.Context) error {
	return s.cache.ForceRefresh(ctx, s)
}

// InvalidateCache drops the cached snapshot; the next read republishes it.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

// Warmup restores the ranker and tracker from persisted rankings, reading at
// most popularN and recentN keywords, and publishes a snapshot.
func (s *Service) Warmup(ctx context.Context, loader Loader, popularN, recentN int) error {
	popular, err := loader.TopKeywordsByCount(ctx, popularN)
	if err != nil {
		return fmt.Errorf("failed to load popular keywords: %w", err)
	}
	recent, err := loader.RecentKeywords(ctx, recentN)
	if err != nil {
		return fmt.Errorf("failed to load recent keywords: %w", err)
	}

	s.popular.Restore(popular)
	s.recent.Restore(recent)
	s.gen.Add(1)

	s.log.Info().Int("popular", len(popular)).Int("recent", len(recent)).Msg("rankings restored from store")

	if err := s.cache.ForceRefresh(ctx, s); err != nil {
		s.log.Warn().Err(err).Msg("cache publish after warmup failed")
	}
	return nil
}
