package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/groupcart/groupcart-backend/internal/checkout"
	"github.com/groupcart/groupcart-backend/internal/sweep"
	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/metrics"
	"github.com/groupcart/groupcart-backend/pkg/migrate"
	"github.com/groupcart/groupcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	sweepMetrics := metrics.NewSweepMetrics(prometheus.DefaultRegisterer)

	lock, err := sweep.NewRedisLock(redisClient, redisClient.LockKey("sweeper"), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	expiryJob, err := sweep.NewSessionExpiryJob(sweep.SessionExpiryJobParams{
		Logger:   logg,
		Sessions: checkout.NewRepository(dbClient.DB()),
		Metrics:  sweepMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session expiry job", err)
		os.Exit(1)
	}

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: sweep.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  sweepMetrics,
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweeper shutting down gracefully")
}
