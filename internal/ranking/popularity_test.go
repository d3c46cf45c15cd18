package ranking

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"searchrank/internal/models"
)

// stepClock returns a clock that advances one second per call.
func stepClock() Clock {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func fixedClock() Clock {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func incr(r *PopularityRanker, keywords ...models.Keyword) {
	for _, k := range keywords {
		r.Increment(k)
	}
}

func TestPopularityRanker_AppleBanana(t *testing.T) {
	r := NewPopularityRanker(0, WithClock(stepClock()))
	incr(r, "apple", "apple", "apple", "banana")

	got := r.TopK(2)
	want := []models.Keyword{"apple", "banana"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopK(2) = %v, want %v", got, want)
	}
	if score, _ := r.Score("apple"); score != 3 {
		t.Errorf("Score(apple) = %d, want 3", score)
	}
}

func TestPopularityRanker_TieBreak(t *testing.T) {
	t.Run("most recent update wins", func(t *testing.T) {
		r := NewPopularityRanker(0, WithClock(stepClock()))
		incr(r, "zebra", "apple")
		want := []models.Keyword{"apple", "zebra"}
		if got := r.TopK(2); !reflect.DeepEqual(got, want) {
			t.Errorf("TopK(2) = %v, want %v", got, want)
		}

		incr(r, "zebra", "apple", "zebra")
		want = []models.Keyword{"zebra", "apple"}
		if got := r.TopK(2); !reflect.DeepEqual(got, want) {
			t.Errorf("TopK(2) = %v, want %v", got, want)
		}
	})

	t.Run("lexicographic when timestamps equal", func(t *testing.T) {
		r := NewPopularityRanker(0, WithClock(fixedClock()))
		incr(r, "cherry", "apple", "banana")
		want := []models.Keyword{"apple", "banana", "cherry"}
		if got := r.TopK(3); !reflect.DeepEqual(got, want) {
			t.Errorf("TopK(3) = %v, want %v", got, want)
		}
	})
}

func TestPopularityRanker_TopKBounds(t *testing.T) {
	r := NewPopularityRanker(0, WithClock(stepClock()))

	if got := r.TopK(5); len(got) != 0 {
		t.Errorf("TopK(5) on empty ranker = %v, want empty", got)
	}

	incr(r, "a", "b", "c", "a")

	if got := r.TopK(0); got == nil || len(got) != 0 {
		t.Errorf("TopK(0) = %#v, want empty non-nil slice", got)
	}
	if got := r.TopK(-1); len(got) != 0 {
		t.Errorf("TopK(-1) = %v, want empty", got)
	}

	got := r.TopK(100)
	if len(got) != 3 {
		t.Fatalf("TopK(100) = %v, want all 3 keywords", got)
	}
	seen := map[models.Keyword]bool{}
	for _, k := range got {
		if seen[k] {
			t.Errorf("TopK(100) returned duplicate %q", k)
		}
		seen[k] = true
	}
}

func TestPopularityRanker_Monotonic(t *testing.T) {
	r := NewPopularityRanker(0, WithClock(fixedClock()))
	counts := map[models.Keyword]int{"a": 5, "b": 3, "c": 8, "d": 1, "e": 3}
	for k, n := range counts {
		for i := 0; i < n; i++ {
			r.Increment(k)
		}
	}

	top := r.Top(len(counts))
	for i := 1; i < len(top); i++ {
		if top[i-1].Score < top[i].Score {
			t.Errorf("rank %d (%s=%d) below rank %d (%s=%d)",
				i-1, top[i-1].Keyword, top[i-1].Score, i, top[i].Keyword, top[i].Score)
		}
	}
	for _, e := range top {
		if int(e.Score) != counts[e.Keyword] {
			t.Errorf("Score(%s) = %d, want %d", e.Keyword, e.Score, counts[e.Keyword])
		}
	}
}

func TestPopularityRanker_CapacityEviction(t *testing.T) {
	var evicted []string
	r := NewPopularityRanker(3,
		WithClock(stepClock()),
		WithEvictCallback(func(k string) { evicted = append(evicted, k) }),
	)

	incr(r, "a", "a", "b", "c", "c")
	// b has the lowest score and is evicted to make room for d.
	r.Increment("d")

	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if _, ok := r.Score("b"); ok {
		t.Error("expected b to be evicted")
	}
	if !reflect.DeepEqual(evicted, []string{"b"}) {
		t.Errorf("evicted = %v, want [b]", evicted)
	}

	// d is now the only keyword with score 1.
	r.Increment("e")
	if _, ok := r.Score("d"); ok {
		t.Error("expected d to be evicted before the higher scored keywords")
	}
	want := []models.Keyword{"c", "a", "e"}
	if got := r.TopK(3); !reflect.DeepEqual(got, want) {
		t.Errorf("TopK(3) = %v, want %v", got, want)
	}
}

func TestPopularityRanker_EvictsLeastRecentAmongLowest(t *testing.T) {
	r := NewPopularityRanker(2, WithClock(stepClock()))
	incr(r, "old", "new", "fresh")

	if _, ok := r.Score("old"); ok {
		t.Error("expected the least recently updated keyword to be evicted")
	}
	if _, ok := r.Score("new"); !ok {
		t.Error("expected new to survive")
	}
}

func TestPopularityRanker_ConcurrentIncrements(t *testing.T) {
	const (
		goroutines = 16
		perWorker  = 500
	)
	r := NewPopularityRanker(0)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r.Increment("hot")
				r.Increment(models.Keyword(fmt.Sprintf("cold-%d", g)))
				if i%50 == 0 {
					_ = r.TopK(10)
				}
			}
		}(g)
	}
	wg.Wait()

	if score, _ := r.Score("hot"); score != goroutines*perWorker {
		t.Errorf("Score(hot) = %d, want %d", score, goroutines*perWorker)
	}
	if got := r.TopK(1); len(got) != 1 || got[0] != "hot" {
		t.Errorf("TopK(1) = %v, want [hot]", got)
	}
	if r.Len() != goroutines+1 {
		t.Errorf("Len() = %d, want %d", r.Len(), goroutines+1)
	}
}

func TestPopularityRanker_ReadersSeeConsistentSnapshot(t *testing.T) {
	r := NewPopularityRanker(0, WithClock(stepClock()))
	incr(r, "a", "b")

	before := r.Top(10)
	incr(r, "b", "b", "c")

	if len(before) != 2 {
		t.Fatalf("Top(10) = %v, want 2 entries", before)
	}
	for _, e := range before {
		if e.Score != 1 {
			t.Errorf("earlier read entry %s score = %d, want 1", e.Keyword, e.Score)
		}
	}
}

func TestPopularityRanker_Restore(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewPopularityRanker(2, WithClock(stepClock()))
	r.Increment("stale")

	r.Restore([]models.PopularityEntry{
		{Keyword: "go", Score: 10, LastUpdated: base},
		{Keyword: "rust", Score: 7, LastUpdated: base},
		{Keyword: "zig", Score: 2, LastUpdated: base},
		{Keyword: "empty", Score: 0, LastUpdated: base},
	})

	want := []models.Keyword{"go", "rust"}
	if got := r.TopK(5); !reflect.DeepEqual(got, want) {
		t.Errorf("TopK(5) after Restore = %v, want %v", got, want)
	}
	if _, ok := r.Score("stale"); ok {
		t.Error("Restore kept an entry from before the restore")
	}

	r.Increment("rust")
	if score, _ := r.Score("rust"); score != 8 {
		t.Errorf("Score(rust) = %d, want 8", score)
	}
}

func TestPopularityRanker_RestoreDoesNotReportEvictions(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var evicted []string
	r := NewPopularityRanker(1, WithClock(stepClock()), WithEvictCallback(func(k string) {
		evicted = append(evicted, k)
	}))

	r.Restore([]models.PopularityEntry{
		{Keyword: "go", Score: 3, LastUpdated: base},
		{Keyword: "rust", Score: 1, LastUpdated: base},
	})
	if len(evicted) != 0 {
		t.Errorf("evictions during Restore = %v, want none", evicted)
	}

	r.Increment("zig")
	if want := []string{"go"}; !reflect.DeepEqual(evicted, want) {
		t.Errorf("evictions after Increment = %v, want %v", evicted, want)
	}
}

func TestMonotonic(t *testing.T) {
	clock := Monotonic(fixedClock())
	prev := clock()
	for i := 0; i < 5; i++ {
		next := clock()
		if !next.After(prev) {
			t.Fatalf("reading %d = %v, not after %v", i, next, prev)
		}
		if d := next.Sub(prev); d != time.Microsecond {
			t.Errorf("reading %d advanced %v, want 1µs", i, d)
		}
		prev = next
	}

	// A clock that already advances is passed through.
	step := stepClock()
	ref := stepClock()
	clock = Monotonic(step)
	for i := 0; i < 3; i++ {
		if got, want := clock(), ref(); !got.Equal(want) {
			t.Errorf("reading %d = %v, want %v", i, got, want)
		}
	}
}
