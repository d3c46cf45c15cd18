package models

import (
	"time"

	"github.com/google/uuid"
)

// CacheStatus describes the cache's connectivity and counters.
type CacheStatus struct {
	Connected  bool      `json:"connected"`
	Stale      bool      `json:"stale"`
	ItemCount  int       `json:"item_count"`
	Generation uint64    `json:"generation"`
	LastSync   time.Time `json:"last_sync"`
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Uptime     string    `json:"uptime"`
	Error      string    `json:"error,omitempty"`
}

// ComparisonReport is the result of comparing one view between the cache and
// the ground-truth source. Reports are produced per request and never stored.
type ComparisonReport struct {
	ID                 uuid.UUID `json:"id"`
	View               View      `json:"view"`
	Limit              int       `json:"limit"`
	GroundTruth        string    `json:"ground_truth"`
	CacheResult        []Keyword `json:"cache_result"`
	StoreResult        []Keyword `json:"store_result"`
	CacheLatencyMicros int64     `json:"cache_latency_micros"`
	StoreLatencyMicros int64     `json:"store_latency_micros"`
	Matches            bool      `json:"matches"`
	MismatchDetail     string    `json:"mismatch_detail,omitempty"`
	CacheError         string    `json:"cache_error,omitempty"`
	StoreError         string    `json:"store_error,omitempty"`
	ComparedAt         time.Time `json:"compared_at"`
}

// SearchResponse is returned after a search is recorded.
type SearchResponse struct {
	Message string `json:"message"`
	Keyword string `json:"keyword"`
}

// KeywordsResponse is returned by the popular and recent endpoints.
type KeywordsResponse struct {
	View     View     `json:"view"`
	Source   string   `json:"source"`
	Keywords []string `json:"keywords"`
}
