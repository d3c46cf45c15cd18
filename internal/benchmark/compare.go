// Package benchmark compares cache-served rankings against the source of
// truth, reporting latency and parity.
package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"searchrank/internal/logging"
	"searchrank/internal/metrics"
	"searchrank/internal/models"
)

// CacheReader is the cache read contract.
type CacheReader interface {
	Get(ctx context.Context, view models.View, limit int) ([]models.Keyword, error)
}

// StoreReader is the persistent store's ranked query contract.
type StoreReader interface {
	PopularKeywords(ctx context.Context, limit int) ([]models.Keyword, error)
	RecentKeywordList(ctx context.Context, limit int) ([]models.Keyword, error)
}

// LiveReader reads rankings straight from the in-memory structures.
type LiveReader interface {
	Live(view models.View, limit int) []models.Keyword
}

// Benchmark runs comparisons. It only reads.
type Benchmark struct {
	cache   CacheReader
	store   StoreReader
	live    LiveReader
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a Benchmark. When store is nil the live ranker and tracker are
// the ground truth.
func New(cache CacheReader, store StoreReader, live LiveReader, m *metrics.Metrics, logger zerolog.Logger) *Benchmark {
	return &Benchmark{
		cache:   cache,
		store:   store,
		live:    live,
		metrics: m,
		log:     logging.Component(logger, "benchmark"),
	}
}

// Compare queries view from the cache and the ground truth concurrently and
// reports each latency and whether the ordered results are equal.
func (b *Benchmark) Compare(ctx context.Context, view models.View, limit int) (*models.ComparisonReport, error) {
	if _, err := models.ParseView(string(view)); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", limit)
	}

	report := &models.ComparisonReport{
		ID:          uuid.New(),
		View:        view,
		Limit:       limit,
		GroundTruth: models.SourceStore,
		ComparedAt:  time.Now().UTC(),
	}
	if b.store == nil {
		report.GroundTruth = models.SourceLive
	}

	var cacheErr, storeErr error
	var g errgroup.Group

	g.Go(func() error {
		start := time.Now()
		report.CacheResult, cacheErr = b.cache.Get(ctx, view, limit)
		report.CacheLatencyMicros = time.Since(start).Microseconds()
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		report.StoreResult, storeErr = b.truth(ctx, view, limit)
		report.StoreLatencyMicros = time.Since(start).Microseconds()
		return nil
	})
	_ = g.Wait()

	switch {
	case cacheErr != nil:
		report.CacheError = cacheErr.Error()
		report.MismatchDetail = "cache query failed: " + cacheErr.Error()
	case storeErr != nil:
		report.StoreError = storeErr.Error()
		report.MismatchDetail = "store query failed: " + storeErr.Error()
	default:
		report.Matches, report.MismatchDetail = Diff(report.CacheResult, report.StoreResult)
	}
	if report.CacheResult == nil {
		report.CacheResult = []models.Keyword{}
	}
	if report.StoreResult == nil {
		report.StoreResult = []models.Keyword{}
	}

	b.metrics.Comparison(view, report.Matches)
	evt := b.log.Debug()
	if !report.Matches {
		evt = b.log.Warn()
	}
	evt.Str(logging.FieldView, string(view)).
		Str("report_id", report.ID.String()).
		Bool("matches", report.Matches).
		Int64("cache_latency_us", report.CacheLatencyMicros).
		Int64("store_latency_us", report.StoreLatencyMicros).
		Str("detail", report.MismatchDetail).
		Msg("cache comparison")

	return report, nil
}

// CompareAll compares every view with the same limit.
func (b *Benchmark) CompareAll(ctx context.Context, limit int) ([]*models.ComparisonReport, error) {
	reports := make([]*models.ComparisonReport, 0, len(models.Views))
	for _, view := range models.Views {
		r, err := b.Compare(ctx, view, limit)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (b *Benchmark) truth(ctx context.Context, view models.View, limit int) ([]models.Keyword, error) {
	if b.store == nil {
		return b.live.Live(view, limit), nil
	}
	switch view {
	case models.ViewPopular:
		return b.store.PopularKeywords(ctx, limit)
	default:
		return b.store.RecentKeywordList(ctx, limit)
	}
}

// Diff compares two ordered keyword sequences. A permutation is a mismatch.
func Diff(cache, truth []models.Keyword) (bool, string) {
	n := min(len(cache), len(truth))
	for i := 0; i < n; i++ {
		if cache[i] != truth[i] {
			return false, fmt.Sprintf("first difference at position %d: cache=%q store=%q", i, cache[i], truth[i])
		}
	}
	if len(cache) != len(truth) {
		return false, fmt.Sprintf("length differs: cache has %d keywords, store has %d", len(cache), len(truth))
	}
	return true, ""
}
