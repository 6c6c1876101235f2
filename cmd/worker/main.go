package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/khadamat/khadamat/internal/app"
	"github.com/khadamat/khadamat/internal/catalog"
	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/observability"
	"github.com/khadamat/khadamat/internal/platform/cache"
	"github.com/khadamat/khadamat/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	api := marketplace.NewClient(cfg.MarketplaceAPIURL, cfg.MarketplaceAPIToken, cfg.MarketplaceTimeout).WithLogger(logger)
	catalogSvc := catalog.NewService(api, cache.NewVersioned(redisClient, "catalog", cfg.CatalogTTL).WithLogger(logger), logger)

	refreshJob := jobs.NewCatalogRefreshJob(catalogSvc, logger, metrics.Jobs(), cfg.LeadSector)
	dispatchJob := jobs.NewLeadDispatchJob(logger, metrics.Jobs())

	refreshTask, err := jobs.NewCatalogRefreshTask("scheduled", cfg.LeadSector)
	if err != nil {
		logger.Error("build catalog refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskLeadDispatch, Handler: dispatchJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Unique(jobs.CatalogRefreshUniqueTTL)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
