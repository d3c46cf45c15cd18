package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the capacity, queue and interval settings. They live in a YAML
// file because they are grouped and rarely change per deployment.
type Tuning struct {
	Tracking  TrackingConfig  `yaml:"tracking"`
	Query     QueryConfig     `yaml:"query"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
	Cache     CacheConfig     `yaml:"cache"`
	Warmup    WarmupConfig    `yaml:"warmup"`
}

// TrackingConfig bounds the in-memory structures.
type TrackingConfig struct {
	PopularCapacity int `yaml:"popular_capacity"` // distinct keywords ranked by popularity
	RecentCapacity  int `yaml:"recent_capacity"`  // distinct keywords kept by recency
	SnapshotSize    int `yaml:"snapshot_size"`    // keywords per view written to the cache
}

// QueryConfig bounds the limit accepted by the read endpoints.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// ForwarderConfig controls the persistent store forward queue.
type ForwarderConfig struct {
	QueueSize int           `yaml:"queue_size"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig controls snapshot publishing.
type CacheConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // reconciler period
	TTL             time.Duration `yaml:"ttl"`              // 0 keeps snapshots until replaced
	OpTimeout       time.Duration `yaml:"op_timeout"`       // connectivity probe timeout
}

// WarmupConfig controls restoring rankings from the store at startup.
type WarmupConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// DefaultTuning returns the built-in tuning.
func DefaultTuning() *Tuning {
	t := &Tuning{}
	t.applyDefaults()
	return t
}

// LoadTuning reads the YAML tuning file at path. A missing file yields the
// defaults.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTuning(), nil
		}
		return nil, err
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	t.applyDefaults()

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning in %s: %w", path, err)
	}
	return &t, nil
}

func (t *Tuning) applyDefaults() {
	if t.Tracking.PopularCapacity == 0 {
		t.Tracking.PopularCapacity = 10000
	}
	if t.Tracking.RecentCapacity == 0 {
		t.Tracking.RecentCapacity = 100
	}
	if t.Tracking.SnapshotSize == 0 {
		t.Tracking.SnapshotSize = 100
	}
	if t.Query.DefaultLimit == 0 {
		t.Query.DefaultLimit = 10
	}
	if t.Query.MaxLimit == 0 {
		t.Query.MaxLimit = 100
	}
	if t.Forwarder.QueueSize == 0 {
		t.Forwarder.QueueSize = 1024
	}
	if t.Forwarder.Workers == 0 {
		t.Forwarder.Workers = 4
	}
	if t.Forwarder.Timeout == 0 {
		t.Forwarder.Timeout = 2 * time.Second
	}
	if t.Cache.RefreshInterval == 0 {
		t.Cache.RefreshInterval = 30 * time.Second
	}
	if t.Cache.OpTimeout == 0 {
		t.Cache.OpTimeout = 500 * time.Millisecond
	}
	if t.Warmup.Enabled == nil {
		enabled := true
		t.Warmup.Enabled = &enabled
	}
}

// Validate rejects settings the core cannot run with.
func (t *Tuning) Validate() error {
	switch {
	case t.Tracking.RecentCapacity < 0:
		return fmt.Errorf("tracking.recent_capacity must not be negative")
	case t.Tracking.SnapshotSize < 0:
		return fmt.Errorf("tracking.snapshot_size must not be negative")
	case t.Query.DefaultLimit < 0 || t.Query.MaxLimit < 0:
		return fmt.Errorf("query limits must not be negative")
	case t.Query.DefaultLimit > t.Query.MaxLimit:
		return fmt.Errorf("query.default_limit %d exceeds query.max_limit %d", t.Query.DefaultLimit, t.Query.MaxLimit)
	case t.Tracking.SnapshotSize < t.Query.MaxLimit:
		// Cached views must be able to answer the largest accepted limit.
		return fmt.Errorf("tracking.snapshot_size %d is below query.max_limit %d", t.Tracking.SnapshotSize, t.Query.MaxLimit)
	case t.Forwarder.QueueSize < 0 || t.Forwarder.Workers < 0:
		return fmt.Errorf("forwarder.queue_size and forwarder.workers must not be negative")
	}
	return nil
}

// WarmupEnabled reports whether rankings are restored at startup.
func (t *Tuning) WarmupEnabled() bool {
	return t.Warmup.Enabled == nil || *t.Warmup.Enabled
}
