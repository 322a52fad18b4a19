package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/phuoc-stack/foodapp-backend/api/routes"
	"github.com/phuoc-stack/foodapp-backend/internal/cart"
	"github.com/phuoc-stack/foodapp-backend/internal/checkout"
	"github.com/phuoc-stack/foodapp-backend/internal/listings"
	"github.com/phuoc-stack/foodapp-backend/internal/orders"
	"github.com/phuoc-stack/foodapp-backend/internal/users"
	stripewebhook "github.com/phuoc-stack/foodapp-backend/internal/webhooks/stripe"
	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/env"
	"github.com/phuoc-stack/foodapp-backend/pkg/instance"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/metrics"
	"github.com/phuoc-stack/foodapp-backend/pkg/migrate"
	"github.com/phuoc-stack/foodapp-backend/pkg/outbox"
	"github.com/phuoc-stack/foodapp-backend/pkg/redis"
	pkgstripe "github.com/phuoc-stack/foodapp-backend/pkg/stripe"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(env.DotEnvFiles()...); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.UpIfDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(registry)

	conn := dbClient.DB()
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Listings: listings.NewRepository(conn),
		Tx:       dbClient,
		TTL:      cfg.Cart.TTL(),
		Logger:   logg,
		Metrics:  orderMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Carts:   cartRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Logger:  logg,
		Metrics: orderMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	successURL, cancelURL := checkout.RedirectURLs(cfg.App.PublicBaseURL, cfg.Stripe.SuccessPath, cfg.Stripe.CancelPath)
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:         dbClient,
		Carts:      cartRepo,
		Orders:     orderRepo,
		Users:      users.NewRepository(conn),
		Sessions:   stripeClient,
		Outbox:     emitter,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Currency:   stripeClient.Currency(),
		Logger:     logg,
		Metrics:    orderMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders: ordersService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewDeliveryGuard(redisClient, cfg.Redis.WebhookTTL)
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.ID("local"),
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:             cfg,
			Logger:             logg,
			DBPinger:           dbClient,
			RedisPinger:        redisClient,
			IdempotencyStore:   redisClient,
			Gatherer:           registry,
			CartService:        cartService,
			CheckoutService:    checkoutService,
			OrdersService:      ordersService,
			StripeClient:       stripeClient,
			StripeWebhooks:     webhookService,
			StripeWebhookGuard: webhookGuard,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
