// Package main is the entrypoint for the kanpai gift recommendation server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kanpai-app/kanpai/internal/api"
	"github.com/kanpai-app/kanpai/internal/api/handler"
	mw "github.com/kanpai-app/kanpai/internal/api/middleware"
	"github.com/kanpai-app/kanpai/internal/cache"
	"github.com/kanpai-app/kanpai/internal/config"
	"github.com/kanpai-app/kanpai/internal/inference"
	"github.com/kanpai-app/kanpai/internal/inference/openai"
	"github.com/kanpai-app/kanpai/internal/jobs"
	"github.com/kanpai-app/kanpai/internal/metrics"
	"github.com/kanpai-app/kanpai/internal/notify"
	"github.com/kanpai-app/kanpai/internal/progress"
	"github.com/kanpai-app/kanpai/internal/scheduler"
	"github.com/kanpai-app/kanpai/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "model", cfg.OpenAI.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create inference client. Without a credential the server still
	// serves reads; submissions fail with a clear error and the reconciler
	// force-fails anything left active.
	var inferenceClient inference.Client
	if cfg.OpenAI.APIKey != "" {
		inferenceClient = openai.NewHTTPClient(cfg.OpenAI)
		slog.Info("inference client initialized", "base_url", cfg.OpenAI.BaseURL)
	} else {
		slog.Warn("OPENAI_API_KEY not set; job submission is disabled")
	}

	// 6. Create LINE pusher
	var pusher notify.Pusher = notify.NopPusher{}
	if cfg.Line.ChannelAccessToken != "" {
		pusher = notify.NewLineClient(cfg.Line.ChannelAccessToken)
		slog.Info("line pusher initialized")
	} else {
		slog.Warn("LINE_MESSAGING_CHANNEL_ACCESS_TOKEN not set; push delivery is disabled")
	}

	// 7. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink := metrics.NewPrometheusSink(registry)

	// 8. Wire the job pipeline
	pgStore := store.NewPostgresStore(pool)
	emitter := progress.NewEmitter()
	effects := jobs.NewSideEffects(pgStore, pusher, sink, cfg.Line.AppOrigin)
	submitter := jobs.NewSubmitter(pgStore, redisCache, inferenceClient, emitter, sink, jobs.SubmitterConfig{
		Model:           cfg.OpenAI.Model,
		MaxOutputTokens: cfg.OpenAI.MaxOutputTokens,
		Timeout:         cfg.Jobs.Timeout,
	})
	reconciler := jobs.NewReconciler(pgStore, inferenceClient, effects, redisCache, emitter, sink, cfg.Jobs.BatchSize)

	// 9. Start the reconcile scheduler
	sched := scheduler.New(reconciler, cfg.Jobs.CronSchedule)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// 10. Build router with dependencies
	deps := api.Dependencies{
		TriggerAuth: mw.NewTriggerAuth(cfg.Jobs.TriggerTokenHash),
		RateLimit:   mw.NewRateLimit(redisCache, 30),

		HealthHandler:            handler.NewHealthHandler(pgStore, redisCache),
		SubmitJobHandler:         handler.NewSubmitJobHandler(pgStore, submitter),
		GetJobHandler:            handler.NewGetJobHandler(pgStore),
		GetJobStatusHandler:      handler.NewGetJobStatusHandler(pgStore, redisCache),
		JobEventsHandler:         handler.NewJobEventsHandler(pgStore, emitter),
		GetRecommendationHandler: handler.NewGetRecommendationHandler(pgStore),
		TriggerReconcileHandler:  handler.NewTriggerReconcileHandler(reconciler),

		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	router := api.NewRouter(deps)

	// 11. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
