// Command cron-worker runs the periodic maintenance jobs: abandoning stale
// pending orders and pruning the outbox. One replica at a time holds the
// Redis lock and does the work.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/phuoc-stack/foodapp-backend/internal/cart"
	"github.com/phuoc-stack/foodapp-backend/internal/cron"
	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/env"
	"github.com/phuoc-stack/foodapp-backend/pkg/instance"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/metrics"
	"github.com/phuoc-stack/foodapp-backend/pkg/migrate"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox"
	"github.com/phuoc-stack/foodapp-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(env.DotEnvFiles()...); err != nil {
		bootLog.Warn(context.Background(), "no dotenv file loaded, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"instance": instance.ID(serviceName),
		"env":      cfg.App.Env,
		"tick":     cfg.Cron.Tick.String(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.UpIfDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := buildService(cfg, logg, dbClient, redisClient, reg)
	if err != nil {
		return err
	}

	metricsSrv := &http.Server{
		Addr:              cfg.Cron.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logg.Info(ctx, "cron worker started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildService wires both jobs into a schedule guarded by the Redis lock.
func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*cron.Service, error) {
	conn := dbClient.DB()
	orderRepo := orders.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Carts:   cart.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  outbox.NewService(outboxRepo, logg),
		Logger:  logg,
		Metrics: metrics.NewOrderMetrics(reg),
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	abandon, err := cron.NewPendingOrderAbandonJob(cron.PendingOrderAbandonJobParams{
		Logger:    logg,
		Reader:    orderRepo,
		Orders:    ordersSvc,
		MaxAge:    cfg.Cron.PendingOrderMaxAge,
		BatchSize: cfg.Cron.PendingOrderBatchSz,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		Outbox:      outboxRepo,
		Retention:   cfg.Cron.OutboxRetention,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, serviceName, cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger: logg,
		Schedule: cron.NewSchedule(
			cron.Entry{Job: abandon, Every: cfg.Cron.PendingOrderEvery},
			cron.Entry{Job: retention, Every: cfg.Cron.OutboxRetentionEvery},
		),
		Lock:    lock,
		Metrics: metrics.NewCronJobMetrics(reg),
		Tick:    cfg.Cron.Tick,
	})
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}
