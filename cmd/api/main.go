package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopsignal/attribution-backend/api/routes"
	"github.com/shopsignal/attribution-backend/internal/aggregates"
	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/internal/clicks"
	"github.com/shopsignal/attribution-backend/internal/consent"
	"github.com/shopsignal/attribution-backend/internal/erasure"
	"github.com/shopsignal/attribution-backend/internal/events"
	"github.com/shopsignal/attribution-backend/internal/tenants"
	"github.com/shopsignal/attribution-backend/pkg/commerce"
	"github.com/shopsignal/attribution-backend/pkg/config"
	"github.com/shopsignal/attribution-backend/pkg/db"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/metrics"
	"github.com/shopsignal/attribution-backend/pkg/migrate"
	"github.com/shopsignal/attribution-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	tenantsRepo := tenants.NewRepository(dbClient.DB())

	consentService, err := consent.NewService(consent.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create consent service", err)
		os.Exit(1)
	}

	clicksService, err := clicks.NewService(clicks.NewRepository(dbClient.DB()), tenantsRepo, consentService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create click registry", err)
		os.Exit(1)
	}

	guard, err := attribution.NewIdempotencyGuard(redisClient, cfg.Attribution.OrderGuardTTL, "order")
	if err != nil {
		logg.Error(context.Background(), "failed to create order guard", err)
		os.Exit(1)
	}
	matcher, err := attribution.NewService(attribution.ServiceParams{
		DB:                dbClient,
		Repo:              attribution.NewRepository(dbClient.DB()),
		Guard:             guard,
		Metrics:           metrics.NewAttributionMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
		ConversionWindow:  cfg.Attribution.ConversionWindow,
		CandidatePageSize: cfg.Attribution.CandidatePageSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create attribution matcher", err)
		os.Exit(1)
	}

	aggregatesRepo := aggregates.NewRepository(dbClient.DB())
	aggregatesService, err := aggregates.NewService(aggregatesRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create aggregates service", err)
		os.Exit(1)
	}

	eventsRepo := events.NewRepository(dbClient.DB())
	eventsService, err := events.NewService(events.ServiceParams{
		Repo:       eventsRepo,
		Gate:       consentService,
		Aggregator: aggregatesService,
		Matcher:    matcher,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event intake", err)
		os.Exit(1)
	}

	erasureService, err := erasure.NewService(erasure.ServiceParams{
		Clicks:     clicks.NewRepository(dbClient.DB()),
		Events:     eventsRepo,
		Aggregates: aggregatesRepo,
		Tenants:    tenantsRepo,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create erasure service", err)
		os.Exit(1)
	}

	var commerceClient *commerce.Client
	if cfg.Commerce.BaseURL != "" {
		commerceClient, err = commerce.NewClient(cfg.Commerce, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create commerce client", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Tenants:  tenantsRepo,
			Clicks:   clicksService,
			Events:   eventsService,
			Consent:  consentService,
			Matcher:  matcher,
			Rollups:  aggregatesService,
			Erasure:  erasureService,
			Commerce: commerceClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
