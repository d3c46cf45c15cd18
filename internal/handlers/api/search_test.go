package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"searchrank/internal/benchmark"
	"searchrank/internal/cache"
	"searchrank/internal/health"
	"searchrank/internal/models"
	"searchrank/internal/ranking"
	"searchrank/internal/search"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func newTestApp(t *testing.T) (*fiber.App, *search.Service) {
	t.Helper()
	recent, err := ranking.NewRecencyTracker(100)
	if err != nil {
		t.Fatalf("NewRecencyTracker() error = %v", err)
	}
	store := cache.NewSnapshotCache(cache.NewMemoryBackend(0), cache.Config{}, zerolog.Nop())
	svc := search.NewService(ranking.NewPopularityRanker(1000), recent, store, nil, search.Options{
		MaxLimit: 100,
		Logger:   zerolog.Nop(),
	})
	bench := benchmark.New(store, nil, svc, nil, zerolog.Nop())
	monitor := health.NewMonitor(store)

	app := fiber.New()
	NewSearchHandler(svc, bench, monitor, 10, 100).Register(app.Group("/api/search"))
	probes := NewProbeHandler(nil, monitor)
	app.Get("/healthz", probes.Liveness)
	app.Get("/readyz", probes.Readiness)
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, target, raw, err)
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("failed to decode data %s: %v", env.Data, err)
	}
	return v
}

func TestSearchHandler_RecordAndRank(t *testing.T) {
	app, _ := newTestApp(t)

	for _, kw := range []string{"apple", "Apple", "  APPLE ", "banana"} {
		status, env := do(t, app, http.MethodPost, "/api/search", `{"keyword":"`+kw+`"}`)
		if status != http.StatusOK {
			t.Fatalf("POST %q status = %d (%s)", kw, status, env.Error)
		}
		if got := decode[models.SearchResponse](t, env); got.Keyword != strings.ToLower(strings.TrimSpace(kw)) {
			t.Errorf("POST %q keyword = %q", kw, got.Keyword)
		}
	}

	tests := []struct {
		target string
		view   models.View
		want   []string
	}{
		{"/api/search/popular", models.ViewPopular, []string{"apple", "banana"}},
		{"/api/search/recent", models.ViewRecent, []string{"banana", "apple"}},
		{"/api/search/popular?limit=1", models.ViewPopular, []string{"apple"}},
		{"/api/search/recent?limit=0", models.ViewRecent, []string{"banana", "apple"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			status, env := do(t, app, http.MethodGet, tt.target, "")
			if status != http.StatusOK {
				t.Fatalf("status = %d (%s)", status, env.Error)
			}
			got := decode[models.KeywordsResponse](t, env)
			if got.View != tt.view {
				t.Errorf("view = %q, want %q", got.View, tt.view)
			}
			if !reflect.DeepEqual(got.Keywords, tt.want) {
				t.Errorf("keywords = %v, want %v", got.Keywords, tt.want)
			}
			if got.Source != models.SourceCache {
				t.Errorf("source = %q, want %q", got.Source, models.SourceCache)
			}
		})
	}
}

func TestSearchHandler_RecordRejects(t *testing.T) {
	app, svc := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"keyword":`},
		{"empty keyword", `{"keyword":""}`},
		{"whitespace", `{"keyword":"   "}`},
		{"too long", `{"keyword":"` + strings.Repeat("x", 101) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, http.MethodPost, "/api/search", tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if env.Status != "error" || env.Error == "" {
				t.Errorf("envelope = %+v, want error", env)
			}
		})
	}
	if svc.Generation() != 0 {
		t.Errorf("Generation() = %d, want 0", svc.Generation())
	}
}

func TestSearchHandler_InvalidLimit(t *testing.T) {
	app, _ := newTestApp(t)
	status, _ := do(t, app, http.MethodGet, "/api/search/popular?limit=ten", "")
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestSearchHandler_CacheDiagnostics(t *testing.T) {
	app, svc := newTestApp(t)
	if _, err := svc.Record(context.Background(), "apple"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	status, env := do(t, app, http.MethodGet, "/api/search/debug/cache-status", "")
	if status != http.StatusOK {
		t.Fatalf("cache-status status = %d", status)
	}
	st := decode[models.CacheStatus](t, env)
	if !st.Connected || st.ItemCount != 1 || st.Generation != 1 {
		t.Errorf("cache status = %+v", st)
	}

	status, env = do(t, app, http.MethodPost, "/api/search/debug/cache/invalidate", "")
	if status != http.StatusOK {
		t.Fatalf("invalidate status = %d", status)
	}
	if st := decode[models.CacheStatus](t, env); st.ItemCount != 0 {
		t.Errorf("item count after invalidate = %d, want 0", st.ItemCount)
	}

	status, env = do(t, app, http.MethodPost, "/api/search/debug/cache/refresh", "")
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d", status)
	}
	if st := decode[models.CacheStatus](t, env); st.ItemCount != 1 {
		t.Errorf("item count after refresh = %d, want 1", st.ItemCount)
	}
}

func TestSearchHandler_Compare(t *testing.T) {
	app, svc := newTestApp(t)
	for _, kw := range []string{"go", "go", "rust"} {
		if _, err := svc.Record(context.Background(), kw); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	status, env := do(t, app, http.MethodGet, "/api/search/compare/cache-vs-store?view=recent&limit=5", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d (%s)", status, env.Error)
	}
	report := decode[models.ComparisonReport](t, env)
	if !report.Matches || report.GroundTruth != models.SourceLive || report.View != models.ViewRecent {
		t.Errorf("report = %+v", report)
	}

	status, env = do(t, app, http.MethodGet, "/api/search/compare/cache-vs-store?view=all", "")
	if status != http.StatusOK {
		t.Fatalf("view=all status = %d (%s)", status, env.Error)
	}
	if reports := decode[[]models.ComparisonReport](t, env); len(reports) != 2 {
		t.Errorf("view=all returned %d reports, want 2", len(reports))
	}

	status, _ = do(t, app, http.MethodGet, "/api/search/compare/cache-vs-store?view=trending", "")
	if status != http.StatusBadRequest {
		t.Errorf("unknown view status = %d, want 400", status)
	}
}

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type healthyCache bool

func (h healthyCache) Healthy(ctx context.Context) bool { return bool(h) }

func TestProbeHandler(t *testing.T) {
	app, _ := newTestApp(t)
	if status, _ := do(t, app, http.MethodGet, "/healthz", ""); status != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/readyz", ""); status != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", status)
	}

	down := fiber.New()
	down.Get("/readyz", NewProbeHandler(downPinger{}, healthyCache(true)).Readiness)
	if status, env := do(t, down, http.MethodGet, "/readyz", ""); status != http.StatusServiceUnavailable || env.Error == "" {
		t.Errorf("/readyz with store down = %d %+v, want 503", status, env)
	}
}
