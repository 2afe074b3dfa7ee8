package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/paypal"
	pkgpubsub "github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
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
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
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
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pingers := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var notifier notifications.Notifier = notifications.NewLogNotifier(logg)
	if cfg.Notifications.Enabled {
		psClient, err := pkgpubsub.NewClient(ctx, cfg.GCP, cfg.Notifications, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		pubsubNotifier, err := notifications.NewPubSubNotifier(psClient.OrderPublisher(), logg)
		if err != nil {
			logg.Error(ctx, "failed to create order notifier", err)
			os.Exit(1)
		}
		notifier = pubsubNotifier
		pingers["pubsub"] = psClient
	}

	var processor paypal.Processor
	if paypalClient, err := paypal.NewClient(cfg.PayPal, nil); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "paypal client disabled")
	} else {
		processor = paypalClient
		logg.Info(logg.WithField(ctx, "paypal_env", cfg.PayPal.Environment()), "paypal client configured")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}
	catalogAdmin, err := catalog.NewAdminService(catalogRepo, dbClient, cfg.Storefront.DefaultCurrency)
	if err != nil {
		logg.Error(ctx, "failed to create catalog admin service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(catalogService, func(session string) cart.Persister {
		return cart.NewRedisPersister(redisClient, session, cfg.Cart.TTL)
	}, redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, cfg.Storefront.DefaultCurrency)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:    ordersRepo,
		Processor: processor,
		Locker:    redisClient,
		Notifier:  notifier,
		Metrics:   metrics.NewPaymentMetrics(registry),
		Logger:    logg,
		SiteURL:   cfg.Storefront.BaseURL(),
		BrandName: cfg.Storefront.BrandName,
		LockTTL:   cfg.PayPal.CaptureLock,

		ProcessorTimeout: cfg.PayPal.Timeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			Store:        redisClient,
			Pingers:      pingers,
			Gatherer:     registry,
			Metrics:      metrics.NewHTTPMetrics(registry),
			Catalog:      catalogService,
			CatalogAdmin: catalogAdmin,
			Cart:         cartService,
			Orders:       ordersService,
			Payments:     paymentsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
