package models

import (
	"time"
)

// Keyword is a normalized, case-folded search term. Two keywords are the
// same keyword exactly when their strings are equal.
type Keyword string

// String returns the keyword as a plain string.
func (k Keyword) String() string {
	return string(k)
}

// PopularityEntry is a keyword's observed search count.
type PopularityEntry struct {
	Keyword     Keyword   `json:"keyword"`
	Score       int64     `json:"score"`
	LastUpdated time.Time `json:"last_updated"`
}

// RecencyEntry is a keyword and the time it was last searched.
type RecencyEntry struct {
	Keyword    Keyword   `json:"keyword"`
	ObservedAt time.Time `json:"observed_at"`
}

// SearchEvent is a single accepted search, forwarded to the persistent store.
type SearchEvent struct {
	Keyword    Keyword
	SearchedAt time.Time
}

// Snapshot is a point-in-time view of both rankings as published to the cache.
// Generation is the ingestion generation the snapshot is known to cover.
type Snapshot struct {
	Popular     []Keyword `json:"popular"`
	Recent      []Keyword `json:"recent"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ItemCount returns the number of distinct keywords held by the snapshot.
func (s *Snapshot) ItemCount() int {
	if s == nil {
		return 0
	}
	seen := make(map[Keyword]struct{}, len(s.Popular)+len(s.Recent))
	for _, k := range s.Popular {
		seen[k] = struct{}{}
	}
	for _, k := range s.Recent {
		seen[k] = struct{}{}
	}
	return len(seen)
}

// Keywords returns the ordered keywords for a view, cut to limit.
func (s *Snapshot) Keywords(view View, limit int) []Keyword {
	if s == nil || limit <= 0 {
		return []Keyword{}
	}
	var src []Keyword
	switch view {
	case ViewPopular:
		src = s.Popular
	case ViewRecent:
		src = s.Recent
	}
	if limit > len(src) {
		limit = len(src)
	}
	out := make([]Keyword, limit)
	copy(out, src[:limit])
	return out
}

// Strings converts keywords to plain strings for API responses.
func Strings(keywords []Keyword) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = string(k)
	}
	return out
}
