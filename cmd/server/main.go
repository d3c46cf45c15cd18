package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"searchrank/internal/benchmark"
	"searchrank/internal/cache"
	"searchrank/internal/config"
	"searchrank/internal/db"
	"searchrank/internal/handlers/api"
	"searchrank/internal/health"
	"searchrank/internal/jobs"
	"searchrank/internal/logging"
	"searchrank/internal/metrics"
	"searchrank/internal/ranking"
	"searchrank/internal/search"
	"searchrank/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:       cfg.LogLevel,
		Pretty:      cfg.IsDev(),
		ServiceName: "searchrank",
	})
	log := logging.L()

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.TuningFile).Msg("failed to load tuning")
	}

	// Metrics
	m := metrics.New(prometheus.DefaultRegisterer, nil, 0)

	// Ranked structures
	popular := ranking.NewPopularityRanker(tuning.Tracking.PopularCapacity,
		ranking.WithEvictCallback(func(string) { m.Eviction("popularity") }))
	recent, err := ranking.NewRecencyTracker(tuning.Tracking.RecentCapacity,
		ranking.WithEvictCallback(func(string) { m.Eviction("recency") }))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create recency tracker")
	}
	metrics.RegisterKeywordCollector(prometheus.DefaultRegisterer, popular, tuning.Query.DefaultLimit)

	// Persistent store. The service runs without it, with the live structures
	// as comparison ground truth.
	var store *db.DB
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("persistent store unavailable, running without it")
	} else {
		defer database.Close()
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("migrations completed successfully")
		store = database
	}

	// Cache
	snapshots := cache.NewSnapshotCache(newBackend(cfg, tuning.Cache.TTL, log), cache.Config{
		Key:          cfg.SnapshotKey(),
		TTL:          tuning.Cache.TTL,
		SnapshotSize: tuning.Tracking.SnapshotSize,
		PingTimeout:  tuning.Cache.OpTimeout,
	}, logging.Component(log, "cache"))
	defer snapshots.Close()

	// Search service, forwarder and background jobs
	var (
		wg        sync.WaitGroup
		forwarder search.Forwarder
		truth     benchmark.StoreReader
		pinger    api.Pinger
	)
	if store != nil {
		fwd := jobs.NewForwarder(store, tuning.Forwarder.QueueSize, tuning.Forwarder.Workers, tuning.Forwarder.Timeout, m, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fwd.Start(ctx)
		}()
		forwarder, truth, pinger = fwd, store, store
	}

	svc := search.NewService(popular, recent, snapshots, forwarder, search.Options{
		MaxLimit: tuning.Query.MaxLimit,
		Metrics:  m,
		Logger:   log,
	})

	if store != nil && tuning.WarmupEnabled() {
		if err := svc.Warmup(ctx, store, tuning.Tracking.PopularCapacity, tuning.Tracking.RecentCapacity); err != nil {
			log.Warn().Err(err).Msg("warm start failed, starting empty")
		}
	}

	reconciler := jobs.NewReconciler(snapshots, svc, tuning.Cache.RefreshInterval, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Start(ctx)
	}()

	// HTTP
	monitor := health.NewMonitor(snapshots)
	bench := benchmark.New(snapshots, truth, svc, m, log)

	srv := server.New(cfg, log)
	srv.RegisterRoutes(
		api.NewSearchHandler(svc, bench, monitor, tuning.Query.DefaultLimit, tuning.Query.MaxLimit),
		api.NewProbeHandler(pinger, monitor),
		prometheus.DefaultGatherer,
	)

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()
	wg.Wait()
	log.Info().Msg("server exited")
}

// newBackend connects to Redis when configured, falling back to the
// in-process backend.
func newBackend(cfg *config.Config, ttl time.Duration, log zerolog.Logger) cache.Backend {
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, using in-process cache backend")
		return cache.NewMemoryBackend(ttl)
	}

	backend, err := cache.NewRedisBackend(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process cache backend")
		return cache.NewMemoryBackend(ttl)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("redis ping failed at startup, cache reads fall back to live state")
	}
	return backend
}
