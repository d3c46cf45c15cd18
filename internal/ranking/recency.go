package ranking

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"searchrank/internal/models"
)

// RecencyTracker holds the most recently searched distinct keywords.
//
// It is an LRU list keyed by keyword: a push moves the keyword to the front
// in O(1), and a push past capacity evicts the tail in O(1). The list is
// safe for concurrent use.
type RecencyTracker struct {
	list      *lru.Cache[models.Keyword, time.Time]
	clock     Clock
	restoring atomic.Bool
}

// NewRecencyTracker creates a tracker holding at most capacity keywords.
func NewRecencyTracker(capacity int, opts ...Option) (*RecencyTracker, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("recency capacity must be positive, got %d", capacity)
	}
	o := buildOptions(opts)

	t := &RecencyTracker{clock: o.clock}
	var onEvict func(models.Keyword, time.Time)
	if o.onEvict != nil {
		onEvict = func(k models.Keyword, _ time.Time) {
			if !t.restoring.Load() {
				o.onEvict(string(k))
			}
		}
	}
	list, err := lru.NewWithEvict[models.Keyword, time.Time](capacity, onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create recency list: %w", err)
	}
	t.list = list
	return t, nil
}

// Push records the keyword as the most recently seen one and returns the
// resulting entry. A keyword already present is moved, never duplicated.
func (t *RecencyTracker) Push(keyword models.Keyword) models.RecencyEntry {
	return t.PushAt(keyword, t.clock())
}

// PushAt is Push with the search time supplied by the caller.
func (t *RecencyTracker) PushAt(keyword models.Keyword, now time.Time) models.RecencyEntry {
	t.list.Add(keyword, now)
	return models.RecencyEntry{Keyword: keyword, ObservedAt: now}
}

// TopN returns up to n keywords, most recent first.
func (t *RecencyTracker) TopN(n int) []models.Keyword {
	if n <= 0 {
		return []models.Keyword{}
	}
	// Keys is ordered oldest to newest.
	keys := t.list.Keys()
	if n > len(keys) {
		n = len(keys)
	}
	out := make([]models.Keyword, n)
	for i := 0; i < n; i++ {
		out[i] = keys[len(keys)-1-i]
	}
	return out
}

// Len returns the number of tracked keywords.
func (t *RecencyTracker) Len() int {
	return t.list.Len()
}

// Restore replaces the tracker's contents with entries ordered most recent
// first. It is meant for warm start on an empty tracker; keywords dropped
// while restoring are not reported as evictions.
func (t *RecencyTracker) Restore(entries []models.RecencyEntry) {
	t.restoring.Store(true)
	defer t.restoring.Store(false)

	t.list.Purge()
	for i := len(entries) - 1; i >= 0; i-- {
		t.list.Add(entries[i].Keyword, entries[i].ObservedAt)
	}
}
