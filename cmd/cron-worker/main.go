package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopsignal/attribution-backend/internal/aggregates"
	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/internal/cron"
	"github.com/shopsignal/attribution-backend/internal/tenants"
	"github.com/shopsignal/attribution-backend/pkg/config"
	"github.com/shopsignal/attribution-backend/pkg/db"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/metrics"
	"github.com/shopsignal/attribution-backend/pkg/migrate"
	"github.com/shopsignal/attribution-backend/pkg/redis"
)

const lockKeyFormat = "sig:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	aggregatesService, err := aggregates.NewService(aggregates.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create aggregates service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewAbandonSweepJob(cron.AbandonSweepJobParams{
		Logger:          logg,
		Clicks:          attribution.NewRepository(dbClient.DB()),
		StalenessWindow: cfg.Attribution.StalenessWindow,
		BatchSize:       cfg.Attribution.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create abandon sweep job", err)
		os.Exit(1)
	}

	recomputeJob, err := cron.NewAggregateRecomputeJob(cron.AggregateRecomputeJobParams{
		Logger:       logg,
		Tenants:      tenants.NewRepository(dbClient.DB()),
		Aggregates:   aggregatesService,
		LookbackDays: cfg.Attribution.RecomputeLookback,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create aggregate recompute job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob, recomputeJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Attribution.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
