package ranking

import (
	"sync"
	"time"
)

// Clock returns the current time. Timestamps are truncated to microseconds so
// they compare equal to values read back from Postgres.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// SystemClock is the wall clock used when no clock is configured.
var SystemClock Clock = defaultClock

// Monotonic wraps c so that every reading is at least a microsecond after
// the previous one. Searches stamped with it never tie, so ordering by
// timestamp matches ordering by arrival.
func Monotonic(c Clock) Clock {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := c()
		if !now.After(last) {
			now = last.Add(time.Microsecond)
		}
		last = now
		return now
	}
}

// Option configures a PopularityRanker or RecencyTracker.
type Option func(*options)

type options struct {
	clock   Clock
	onEvict func(keyword string)
}

func buildOptions(opts []Option) options {
	o := options{clock: defaultClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithEvictCallback registers a function called for every keyword removed by
// capacity eviction. It must not call back into the structure.
func WithEvictCallback(fn func(keyword string)) Option {
	return func(o *options) {
		o.onEvict = fn
	}
}
