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

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/manakshia-steel/manakshia/cmd/manakshia/cli"
	"github.com/manakshia-steel/manakshia/internal/app"
	"github.com/manakshia-steel/manakshia/internal/observability"
	"github.com/manakshia-steel/manakshia/internal/platform/cache"
	"github.com/manakshia-steel/manakshia/internal/platform/db"
	"github.com/manakshia-steel/manakshia/internal/purchasing"
	"github.com/manakshia-steel/manakshia/internal/shared"
	"github.com/manakshia-steel/manakshia/jobs"
	"github.com/manakshia-steel/manakshia/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(cfg, logger)
	case "jobs":
		err = jobsCommand(ctx, cfg, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q (want serve, migrate or jobs)", command)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(command, slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(cfg *app.Config, logger *slog.Logger) error {
	version, err := db.Migrate(cfg.PGDSN, migrations.Files, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", slog.Uint64("version", uint64(version)))
	return nil
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jobsCLI.Close() }()

	if len(args) == 0 || args[0] == "stats" {
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	}
	info, err := jobsCLI.Trigger(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}
	fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, item cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	translator, err := purchasing.NewTranslator(cfg.Language, cfg.Currency)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	service := newPurchasingService(pool, redisClient, cfg, logger, metrics)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		return err
	}
	defer func() { _ = jobsClient.Close() }()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()

	var enqueuer purchasing.Enqueuer
	if redisClient != nil {
		enqueuer = jobsClient
	}
	purchasingHandler := purchasing.NewHandler(logger, service, translator, enqueuer).
		WithIdempotency(shared.NewIdempotencyStore(pool))

	checks := map[string]app.HealthChecker{"postgres": pool}
	if redisClient != nil {
		checks["redis"] = cache.Checker{Client: redisClient}
	}
	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		PurchasingHandler: purchasingHandler,
		JobsHandler:       jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
		Checks:            checks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newPurchasingService(pool *pgxpool.Pool, redisClient *redis.Client, cfg *app.Config, logger *slog.Logger, metrics *observability.Metrics) *purchasing.Service {
	catalog := purchasing.NewCachedCatalog(purchasing.NewPGCatalog(pool), redisClient, cfg.CatalogCacheTTL, logger)
	return purchasing.NewService(
		purchasing.NewRepository(pool),
		catalog,
		shared.NewAuditLogger(pool),
		purchasing.NoopHooks{},
		metrics,
	)
}
