package ranking

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/gtreap"

	"searchrank/internal/models"
)

// scored is an immutable treap item. Increments replace the item rather than
// mutate it, so published treap roots stay valid for concurrent readers.
type scored struct {
	keyword models.Keyword
	score   int64
	updated time.Time
}

// compareRank orders items best first: score descending, then most recently
// updated, then keyword ascending. It is a total order over distinct keywords.
func compareRank(a, b interface{}) int {
	x, y := a.(*scored), b.(*scored)
	switch {
	case x.score > y.score:
		return -1
	case x.score < y.score:
		return 1
	}
	switch {
	case x.updated.After(y.updated):
		return -1
	case x.updated.Before(y.updated):
		return 1
	}
	switch {
	case x.keyword < y.keyword:
		return -1
	case x.keyword > y.keyword:
		return 1
	}
	return 0
}

// PopularityRanker counts keyword searches and serves them in rank order.
//
// Writers serialize on mu and publish a new persistent treap root after every
// change; each increment is a delete plus an upsert, O(log n). Readers load the
// current root without locking and see a consistent point-in-time ranking.
type PopularityRanker struct {
	mu       sync.Mutex
	capacity int
	entries  map[models.Keyword]*scored
	root     atomic.Pointer[gtreap.Treap]
	opts     options
}

// NewPopularityRanker creates a ranker holding at most capacity distinct
// keywords. A capacity of zero or less means unbounded.
func NewPopularityRanker(capacity int, opts ...Option) *PopularityRanker {
	r := &PopularityRanker{
		capacity: capacity,
		entries:  make(map[models.Keyword]*scored),
		opts:     buildOptions(opts),
	}
	r.root.Store(gtreap.NewTreap(compareRank))
	return r
}

// Increment adds one to the keyword's score, creating it when absent, and
// returns the updated entry.
func (r *PopularityRanker) Increment(keyword models.Keyword) models.PopularityEntry {
	return r.IncrementAt(keyword, r.opts.clock())
}

// IncrementAt is Increment with the search time supplied by the caller.
func (r *PopularityRanker) IncrementAt(keyword models.Keyword, now time.Time) models.PopularityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.root.Load()

	next := &scored{keyword: keyword, score: 1, updated: now}
	if prev, ok := r.entries[keyword]; ok {
		t = t.Delete(prev)
		next.score = prev.score + 1
		if prev.updated.After(now) {
			next.updated = prev.updated
		}
	} else if r.capacity > 0 && len(r.entries) >= r.capacity {
		t = r.evictLocked(t, true)
	}

	t = t.Upsert(next, rand.Int())
	r.entries[keyword] = next
	r.root.Store(t)

	return next.entry()
}

// evictLocked removes the lowest ranked keyword: lowest score, then least
// recently updated. notify controls the evict callback.
func (r *PopularityRanker) evictLocked(t *gtreap.Treap, notify bool) *gtreap.Treap {
	worst, ok := t.Max().(*scored)
	if !ok || worst == nil {
		return t
	}
	delete(r.entries, worst.keyword)
	if notify && r.opts.onEvict != nil {
		r.opts.onEvict(string(worst.keyword))
	}
	return t.Delete(worst)
}

// TopK returns up to k keywords in rank order.
func (r *PopularityRanker) TopK(k int) []models.Keyword {
	entries := r.Top(k)
	out := make([]models.Keyword, len(entries))
	for i, e := range entries {
		out[i] = e.Keyword
	}
	return out
}

// Top returns up to k entries, with scores, in rank order.
func (r *PopularityRanker) Top(k int) []models.PopularityEntry {
	if k <= 0 {
		return []models.PopularityEntry{}
	}
	t := r.root.Load()
	first := t.Min()
	if first == nil {
		return []models.PopularityEntry{}
	}

	out := make([]models.PopularityEntry, 0, min(k, 64))
	t.VisitAscend(first, func(i gtreap.Item) bool {
		out = append(out, i.(*scored).entry())
		return len(out) < k
	})
	return out
}

// Score returns the keyword's current score and whether it is tracked.
func (r *PopularityRanker) Score(keyword models.Keyword) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[keyword]
	if !ok {
		return 0, false
	}
	return e.score, true
}

// Len returns the number of distinct tracked keywords.
func (r *PopularityRanker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Restore replaces the ranker's contents with previously persisted entries,
// keeping the best capacity of them. It is used for warm start only and does
// not report the trimmed entries as evictions.
func (r *PopularityRanker) Restore(entries []models.PopularityEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := gtreap.NewTreap(compareRank)
	r.entries = make(map[models.Keyword]*scored, len(entries))
	for _, e := range entries {
		if e.Score <= 0 {
			continue
		}
		if prev, ok := r.entries[e.Keyword]; ok {
			t = t.Delete(prev)
		}
		s := &scored{keyword: e.Keyword, score: e.Score, updated: e.LastUpdated}
		t = t.Upsert(s, rand.Int())
		r.entries[e.Keyword] = s
	}
	for r.capacity > 0 && len(r.entries) > r.capacity {
		t = r.evictLocked(t, false)
	}
	r.root.Store(t)
}

func (s *scored) entry() models.PopularityEntry {
	return models.PopularityEntry{
		Keyword:     s.keyword,
		Score:       s.score,
		LastUpdated: s.updated,
	}
}
