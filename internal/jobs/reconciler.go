package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"searchrank/internal/cache"
	"searchrank/internal/logging"
)

// Reconciler periodically checks the cached snapshot against the live state
// and republishes it when it is missing, unreadable or behind.
type Reconciler struct {
	cache    cache.Store
	src      cache.Source
	interval time.Duration
	log      zerolog.Logger
}

// NewReconciler creates a reconciler running every interval.
func NewReconciler(store cache.Store, src cache.Source, interval time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		cache:    store,
		src:      src,
		interval: interval,
		log:      logging.Component(logger, "reconciler"),
	}
}

// Start begins the reconcile loop and blocks until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.log.Info().Dur("interval", r.interval).Msg("cache reconciler started")

	r.Reconcile(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("cache reconciler stopped")
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one check. A readable snapshot only gets the coalescing
// refresh; anything else is rewritten.
func (r *Reconciler) Reconcile(ctx context.Context) {
	var err error
	if peekErr := r.cache.Peek(ctx); peekErr == nil {
		err = r.cache.Refresh(ctx, r.src)
	} else {
		r.log.Debug().Err(peekErr).Msg("cached snapshot unusable, republishing")
		err = r.cache.ForceRefresh(ctx, r.src)
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("cache reconcile failed")
	}
}
