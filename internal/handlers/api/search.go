package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"searchrank/internal/benchmark"
	"searchrank/internal/cache"
	"searchrank/internal/health"
	"searchrank/internal/logging"
	"searchrank/internal/models"
	"searchrank/internal/search"
	"searchrank/internal/validation"
)

// viewAll selects every view on the comparison endpoint.
const viewAll = "all"

// SearchHandler serves search submission, ranked views and cache
// diagnostics via JSON API.
type SearchHandler struct {
	svc          *search.Service
	bench        *benchmark.Benchmark
	monitor      *health.Monitor
	defaultLimit int
	maxLimit     int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(svc *search.Service, bench *benchmark.Benchmark, monitor *health.Monitor, defaultLimit, maxLimit int) *SearchHandler {
	return &SearchHandler{
		svc:          svc,
		bench:        bench,
		monitor:      monitor,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Register mounts the handler's routes under router.
func (h *SearchHandler) Register(router fiber.Router) {
	router.Post("", h.Record)
	router.Get("/popular", h.Popular)
	router.Get("/recent", h.Recent)
	router.Get("/debug/cache-status", h.CacheStatus)
	router.Post("/debug/cache/invalidate", h.InvalidateCache)
	router.Post("/debug/cache/refresh", h.RefreshCache)
	router.Get("/compare/cache-vs-store", h.Compare)
}

// Record records one search submission.
func (h *SearchHandler) Record(c fiber.Ctx) error {
	var body struct {
		Keyword string `json:"keyword"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	keyword, err := h.svc.Record(requestContext(c), body.Keyword)
	if err != nil {
		if validation.IsValidationError(err) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		log := logging.FromFiber(c)
		log.Error().Err(err).Msg("failed to record search")
		return jsonError(c, fiber.StatusInternalServerError, "failed to record search")
	}

	return jsonSuccess(c, models.SearchResponse{
		Message: "search recorded",
		Keyword: keyword.String(),
	})
}

// Popular returns the most popular keywords.
func (h *SearchHandler) Popular(c fiber.Ctx) error {
	return h.keywords(c, models.ViewPopular)
}

// Recent returns the most recently searched keywords.
func (h *SearchHandler) Recent(c fiber.Ctx) error {
	return h.keywords(c, models.ViewRecent)
}

func (h *SearchHandler) keywords(c fiber.Ctx, view models.View) error {
	limit, err := h.limit(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	kws, source, err := h.svc.Keywords(requestContext(c), view, limit)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	return jsonSuccess(c, models.KeywordsResponse{
		View:     view,
		Source:   source,
		Keywords: models.Strings(kws),
	})
}

// CacheStatus reports cache connectivity and counters.
func (h *SearchHandler) CacheStatus(c fiber.Ctx) error {
	return jsonSuccess(c, h.monitor.Status(c.Context()))
}

// InvalidateCache drops the cached snapshot.
func (h *SearchHandler) InvalidateCache(c fiber.Ctx) error {
	if err := h.svc.InvalidateCache(c.Context()); err != nil {
		return h.cacheError(c, err, "failed to invalidate cache")
	}
	return jsonSuccess(c, h.monitor.Status(c.Context()))
}

// RefreshCache republishes the cached snapshot from the live rankings.
func (h *SearchHandler) RefreshCache(c fiber.Ctx) error {
	if err := h.svc.RefreshCache(c.Context()); err != nil {
		return h.cacheError(c, err, "failed to refresh cache")
	}
	return jsonSuccess(c, h.monitor.Status(c.Context()))
}

// Compare compares the cached rankings with the ground truth.
func (h *SearchHandler) Compare(c fiber.Ctx) error {
	limit, err := h.limit(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	view := c.Query("view", string(models.ViewPopular))
	if view == viewAll {
		reports, err := h.bench.CompareAll(c.Context(), limit)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		return jsonSuccess(c, reports)
	}

	v, err := models.ParseView(view)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	report, err := h.bench.Compare(c.Context(), v, limit)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	return jsonSuccess(c, report)
}

// limit parses the limit query parameter. Missing or non-positive values use
// the default and values above the maximum are clamped.
func (h *SearchHandler) limit(c fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if n <= 0 {
		return h.defaultLimit, nil
	}
	if n > h.maxLimit {
		n = h.maxLimit
	}
	return n, nil
}

// requestContext carries the request scoped logger into the service.
func requestContext(c fiber.Ctx) context.Context {
	return logging.WithLogger(c.Context(), logging.FromFiber(c))
}

func (h *SearchHandler) cacheError(c fiber.Ctx, err error, message string) error {
	log := logging.FromFiber(c)
	log.Warn().Err(err).Msg(message)
	if errors.Is(err, cache.ErrCacheUnavailable) {
		return jsonError(c, fiber.StatusServiceUnavailable, "cache unavailable")
	}
	return jsonError(c, fiber.StatusInternalServerError, message)
}
