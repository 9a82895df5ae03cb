package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/api"
	"github.com/VasquezCodes/CineMatch-sub000/internal/config"
	"github.com/VasquezCodes/CineMatch-sub000/internal/db"
	"github.com/VasquezCodes/CineMatch-sub000/internal/enrich"
	"github.com/VasquezCodes/CineMatch-sub000/internal/metrics"
	"github.com/VasquezCodes/CineMatch-sub000/internal/notifier"
	"github.com/VasquezCodes/CineMatch-sub000/internal/ratelimiter"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/service"
	"github.com/VasquezCodes/CineMatch-sub000/internal/tmdb"
	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.WorkerSecret == "" {
		logger.Warn("WORKER_SECRET unset: worker endpoints will answer 500 and the trigger chain is disabled")
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	queueRepo := repository.NewPgQueueRepository(pool)
	movieRepo := repository.NewPgMovieRepository(pool)
	progress := notifier.NewPGNotifier(pool, logger)

	provider, err := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBBaseURL, cfg.TMDBTimeout)
	if err != nil {
		logger.Fatal("failed to create tmdb client", zap.Error(err))
	}
	limiter := ratelimiter.New(cfg.TMDBRateLimit)
	enricher := enrich.New(provider, movieRepo, limiter, logger,
		cfg.ProviderBatchSize, cfg.ProviderBatchDelay, m.ProviderHook())

	// Two trigger instances over the same endpoint: the enqueue wake-up uses
	// a tighter timeout than the worker-to-worker continuation call.
	wake := worker.NewTrigger(cfg.SelfBaseURL, cfg.WorkerSecret, cfg.WakeTimeout, logger)
	continuation := worker.NewTrigger(cfg.SelfBaseURL, cfg.WorkerSecret, cfg.TriggerTimeout, logger)

	hooks := m.WorkerHooks()
	runner := worker.NewRunner(queueRepo, enricher, progress, continuation, logger,
		worker.RunnerConfig{TimeBudget: cfg.TimeBudget, BatchSize: cfg.BatchSize}, hooks)
	backfill := worker.NewBackfill(movieRepo, enricher, continuation, logger,
		worker.BackfillConfig{TimeBudget: cfg.TimeBudget, PageSize: cfg.BackfillPageSize}, hooks)

	imports := service.NewImportService(queueRepo, progress, wake, logger, cfg.EnqueueBatchSize)

	// ---- background poller ----
	// Context for background goroutines; cancelled on shutdown signal.
	pollerCtx, cancelPoller := context.WithCancel(ctx)
	defer cancelPoller()

	pollerDone := make(chan struct{})
	poller := worker.NewPoller(queueRepo, runner, cfg.PollInterval, logger)
	go func() {
		defer close(pollerDone)
		poller.Run(pollerCtx)
	}()

	// ---- HTTP server ----
	router := api.NewRouter(imports, movieRepo, enricher, runner, backfill,
		cfg.WorkerSecret, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests; in-flight worker invocations get
	//    the shutdown window to finish their current batch.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the poller and wait for it to return.
	cancelPoller()
	<-pollerDone

	logger.Info("server stopped cleanly")
}
