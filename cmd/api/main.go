package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/groupcart/groupcart-backend/api/routes"
	"github.com/groupcart/groupcart-backend/internal/carts"
	"github.com/groupcart/groupcart-backend/internal/catalog"
	"github.com/groupcart/groupcart-backend/internal/checkout"
	"github.com/groupcart/groupcart-backend/internal/groups"
	"github.com/groupcart/groupcart-backend/internal/payments"
	"github.com/groupcart/groupcart-backend/internal/users"
	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/migrate"
	"github.com/groupcart/groupcart-backend/pkg/redis"
	"github.com/groupcart/groupcart-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Products: catalogRepo,
		Tiers:    catalogRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	groupService, err := groups.NewService(groups.ServiceParams{
		Tx:       dbClient,
		Repo:     groups.NewRepository(dbClient.DB()),
		Products: catalogRepo,
		Users:    users.NewRepository(dbClient.DB()),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create group service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewStripeGateway(stripeClient, cfg.Stripe.RequestTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:            dbClient,
		Repo:          checkout.NewRepository(dbClient.DB()),
		Notifications: checkout.NewNotificationRepository(dbClient.DB()),
		Carts:         carts.NewRepository(dbClient.DB()),
		Groups:        groups.NewRepository(dbClient.DB()),
		Products:      catalogRepo,
		Discounts:     catalogService,
		Gateway:       gateway,
		SessionTTL:    cfg.Checkout.SessionTTL,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := payments.NewWebhookService(payments.WebhookServiceParams{
		Settlement: checkoutService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewIdempotencyGuard(redisClient, cfg.Stripe.EventTTL, "stripe-events")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			groupService,
			checkoutService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
