package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/khadamat/khadamat/cmd/khadamat/cli"
	"github.com/khadamat/khadamat/internal/admin"
	"github.com/khadamat/khadamat/internal/app"
	"github.com/khadamat/khadamat/internal/catalog"
	"github.com/khadamat/khadamat/internal/directory"
	"github.com/khadamat/khadamat/internal/kvstore"
	"github.com/khadamat/khadamat/internal/leads"
	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/moving"
	"github.com/khadamat/khadamat/internal/notices"
	"github.com/khadamat/khadamat/internal/observability"
	"github.com/khadamat/khadamat/internal/platform/cache"
	"github.com/khadamat/khadamat/internal/platform/db"
	"github.com/khadamat/khadamat/internal/rotation"
	"github.com/khadamat/khadamat/internal/shared"
	"github.com/khadamat/khadamat/jobs"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		os.Exit(serveCommand())
	case "estimate":
		os.Exit(estimateCommand(args))
	case "jobs":
		os.Exit(jobsCommand(args))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, estimate or jobs)\n", cmd)
		os.Exit(2)
	}
}

func estimateCommand(args []string) int {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	var opts cli.EstimateOptions
	var rooms, services stringList
	fs.Var(&rooms, "room", "room type and quantity, e.g. bedroom=2 (repeatable)")
	fs.Var(&services, "service", "extra service, e.g. packing (repeatable)")
	fs.StringVar(&opts.Distance, "distance", string(moving.DistanceLocal), "distance tier")
	fs.StringVar(&opts.FromFloor, "from-floor", moving.FloorGround, "pickup floor level")
	fs.StringVar(&opts.ToFloor, "to-floor", moving.FloorGround, "delivery floor level")
	fs.StringVar(&opts.RateCardPath, "rate-card", os.Getenv("RATE_CARD_PATH"), "rate card YAML path")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the quote as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts.Rooms, opts.Services = rooms, services
	return cli.EstimateCommand(opts)
}

func jobsCommand(args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: khadamat jobs trigger <task> [-sector s] | khadamat jobs inspect")
		return 2
	}
	opts := cli.JobsOptions{Action: args[0]}
	args = args[1:]
	if opts.Action == "trigger" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.Task, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	var sectors stringList
	fs.Var(&sectors, "sector", "sector to refresh (repeatable)")
	redisAddr := fs.String("redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts.Sectors = sectors

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	jobsCLI := cli.NewJobsCLI(*redisAddr)
	defer func() {
		_ = jobsCLI.Close()
	}()
	return jobsCLI.JobsCommand(ctx, opts)
}

func serveCommand() int {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		return 1
	}
	return 0
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, ConnectTimeout: 5 * time.Second})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool, kvstore.Schema, shared.IdempotencySchema); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	store, err := newKVStore(cfg, redisClient, pool)
	if err != nil {
		return err
	}

	var rates *moving.RateCard
	if cfg.RateCardPath != "" {
		rates, err = moving.LoadRateCard(cfg.RateCardPath)
	} else {
		rates, err = moving.DefaultRateCard()
	}
	if err != nil {
		return fmt.Errorf("rate card: %w", err)
	}

	metrics := observability.NewMetrics()
	api := marketplace.NewClient(cfg.MarketplaceAPIURL, cfg.MarketplaceAPIToken, cfg.MarketplaceTimeout).WithLogger(logger)
	if err := api.Ping(ctx); err != nil {
		metrics.ObserveUpstreamError("ping")
		logger.Warn("marketplace ping", slog.Any("error", err))
	}

	catalogSvc := catalog.NewService(api, cache.NewVersioned(redisClient, "catalog", cfg.CatalogTTL).WithLogger(logger), logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return fmt.Errorf("jobs client: %w", err)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	leadsCfg := leads.ServiceConfig{
		Estimator:   moving.NewEstimator(rates),
		Advertisers: catalogSvc,
		RoundRobin:  rotation.NewRoundRobin(store),
		Dispatcher:  jobsClient,
		Metrics:     metrics,
		Logger:      logger,
		Sector:      cfg.LeadSector,
	}
	var directoryIdem directory.IdempotencyGuard
	if pool != nil {
		idem := shared.NewIdempotencyStore(pool)
		leadsCfg.Idempotency = idem
		directoryIdem = idem
	}
	leadsSvc := leads.NewService(leadsCfg)

	directorySvc := directory.NewService(ctx, catalogSvc, api, cfg.ShuffleInterval, logger)
	defer directorySvc.Close()

	feed := notices.NewFeed(cfg.NoticeInterval, nil)
	feed.Start(ctx)
	defer feed.Stop()

	if _, err := jobsClient.EnqueueCatalogRefresh(ctx, "startup", cfg.LeadSector); err != nil {
		logger.Warn("enqueue startup catalog refresh", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LeadsHandler:     leads.NewHandler(logger, leadsSvc),
		DirectoryHandler: directory.NewHandler(logger, directorySvc, directoryIdem),
		NoticesHandler:   notices.NewHandler(logger, notices.NewService(feed, store)),
		AdminHandler:     admin.NewHandler(logger, admin.NewService(api, catalogSvc, logger), "/login"),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newKVStore(cfg *app.Config, client *redis.Client, pool *pgxpool.Pool) (kvstore.Store, error) {
	switch cfg.KVBackend {
	case app.KVBackendPostgres:
		if pool == nil {
			return nil, errors.New("postgres kv backend needs PG_DSN")
		}
		return kvstore.NewPostgres(pool), nil
	case app.KVBackendRedis:
		if client != nil {
			return kvstore.NewRedis(client, ""), nil
		}
		slog.Default().Warn("redis kv backend unavailable, using memory")
		return kvstore.NewMemory(), nil
	default:
		return kvstore.NewMemory(), nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
