package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"searchrank/internal/logging"
	"searchrank/internal/metrics"
	"searchrank/internal/models"
)

// SearchRecorder is the persistent store's write contract.
type SearchRecorder interface {
	RecordSearch(ctx context.Context, event models.SearchEvent) error
}

// Forwarder delivers search events to the persistent store off the request
// path. Delivery is best-effort: a full queue drops the event and events
// still queued at shutdown are discarded.
type Forwarder struct {
	store   SearchRecorder
	queue   chan models.SearchEvent
	workers int
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewForwarder creates a forwarder with a queue of queueSize events drained
// by workers goroutines, each store call bounded by timeout.
func NewForwarder(store SearchRecorder, queueSize, workers int, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Forwarder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Forwarder{
		store:   store,
		queue:   make(chan models.SearchEvent, queueSize),
		workers: workers,
		timeout: timeout,
		metrics: m,
		log:     logging.Component(logger, "forwarder"),
	}
}

// Enqueue queues an event without blocking. It returns false when the queue
// is full and the event was dropped.
func (f *Forwarder) Enqueue(event models.SearchEvent) bool {
	select {
	case f.queue <- event:
		return true
	default:
		f.metrics.Forward(metrics.ForwardDropped)
		return false
	}
}

// Pending returns the number of queued events.
func (f *Forwarder) Pending() int {
	return len(f.queue)
}

// Start runs the workers until ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) {
	f.log.Info().Int("workers", f.workers).Int("queue_size", cap(f.queue)).Msg("store forwarder started")

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.work(ctx)
		}()
	}
	wg.Wait()

	if n := len(f.queue); n > 0 {
		f.log.Warn().Int("dropped", n).Msg("store forwarder stopped with queued events")
	} else {
		f.log.Info().Msg("store forwarder stopped")
	}
}

func (f *Forwarder) work(ctx context.Context) {
	for {
		// Check context first so shutdown wins over a non-empty queue.
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case event := <-f.queue:
			f.forward(ctx, event)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, event models.SearchEvent) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.store.RecordSearch(callCtx, event); err != nil {
		f.metrics.Forward(metrics.ForwardFailed)
		f.log.Warn().Err(err).Str(logging.FieldKeyword, string(event.Keyword)).Msg("store forward failed")
		return
	}
	f.metrics.Forward(metrics.ForwardOK)
}
