package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTuning_MissingFileUsesDefaults(t *testing.T) {
	tu, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if tu.Query.DefaultLimit != 10 {
		t.Errorf("DefaultLimit = %d, want 10", tu.Query.DefaultLimit)
	}
	if tu.Tracking.RecentCapacity != 100 {
		t.Errorf("RecentCapacity = %d, want 100", tu.Tracking.RecentCapacity)
	}
	if !tu.WarmupEnabled() {
		t.Error("warmup should default to enabled")
	}
}

func TestLoadTuning_Overrides(t *testing.T) {
	path := writeTuning(t, `
tracking:
  popular_capacity: 50
  recent_capacity: 15
forwarder:
  workers: 2
  timeout: 750ms
cache:
  refresh_interval: 5s
warmup:
  enabled: false
`)
	tu, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"popular capacity", tu.Tracking.PopularCapacity, 50},
		{"recent capacity", tu.Tracking.RecentCapacity, 15},
		{"snapshot size default", tu.Tracking.SnapshotSize, 100},
		{"workers", tu.Forwarder.Workers, 2},
		{"timeout", tu.Forwarder.Timeout, 750 * time.Millisecond},
		{"refresh interval", tu.Cache.RefreshInterval, 5 * time.Second},
		{"warmup", tu.WarmupEnabled(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadTuning_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "tracking: [unclosed"},
		{"negative recent", "tracking:\n  recent_capacity: -1\n"},
		{"default above max", "query:\n  default_limit: 50\n  max_limit: 20\n"},
		{"snapshot below max limit", "tracking:\n  snapshot_size: 2\n"},
		{"max limit above default snapshot", "query:\n  max_limit: 500\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTuning(writeTuning(t, tt.body)); err == nil {
				t.Errorf("LoadTuning(%q) expected error", tt.body)
			}
		})
	}
}

func TestTuning_ValidateSnapshotSize(t *testing.T) {
	tu := DefaultTuning()
	if err := tu.Validate(); err != nil {
		t.Fatalf("Validate() on defaults error = %v", err)
	}

	tu.Tracking.SnapshotSize = tu.Query.MaxLimit
	if err := tu.Validate(); err != nil {
		t.Errorf("Validate() with snapshot_size == max_limit error = %v", err)
	}

	tu.Tracking.SnapshotSize = tu.Query.MaxLimit - 1
	if err := tu.Validate(); err == nil {
		t.Error("Validate() with snapshot_size below max_limit error = nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("CACHE_KEY_PREFIX", "")
	cfg := Load()
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q, want :8080", cfg.ServerAddr)
	}
	if got := cfg.SnapshotKey(); got != "searchrank:snapshot" {
		t.Errorf("SnapshotKey() = %q", got)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("ENV", "production")
	cfg := Load()
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.IsDev() {
		t.Error("IsDev() = true in production")
	}
}

func TestLoad_RateLimit(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 600},
		{"0", 0},
		{"120", 120},
		{"lots", 600},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("RATE_LIMIT", tt.value)
			if got := Load().RateLimit; got != tt.want {
				t.Errorf("RateLimit = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadTuning_ExampleFileMatchesDefaults(t *testing.T) {
	got, err := LoadTuning("../../tuning.example.yaml")
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if want := DefaultTuning(); !reflect.DeepEqual(got, want) {
		t.Errorf("example tuning = %+v, want defaults %+v", got, want)
	}
}
