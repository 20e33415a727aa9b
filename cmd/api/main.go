package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"storefront-api/internal/cache"
	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/logger"
	"storefront-api/internal/metrics"
	"storefront-api/internal/repository"
	"storefront-api/internal/server"
	"storefront-api/internal/service"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	db, err := client.InitDB(cfg.Database)
	if err != nil {
		return err
	}

	var productRepo repository.ProductRepository = repository.NewProductRepository(db)
	if cfg.SeedCatalog {
		if err := productRepo.Seed(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	var cartCache cache.CartCache = cache.NopCartCache{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		cartCache = cache.NewRedisCartCache(rdb, cfg.Redis.CartTTL)
		productRepo = cache.NewCachedProductRepository(productRepo, rdb, cfg.Redis.ProductTTL, log)
		log.Info("redis caching enabled", zap.String("addr", cfg.Redis.Addr))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is not set, every webhook will be rejected")
	}
	stripeClient := client.NewStripeClient(&cfg.Stripe, log)

	cartService := service.NewCartService(
		repository.NewCartRepository(db),
		productRepo,
		cartCache,
		log,
	)
	orderService := service.NewOrderService(
		db,
		stripeClient,
		cfg.BaseURL,
		cfg.Order.TaxPercent,
		productRepo,
		repository.NewOrderRepository(db),
		repository.NewWebhookEventRepository(db),
		cartService,
		m,
		log,
	)
	addressService := service.NewAddressService(repository.NewAddressRepository(db))

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg, orderService, cartService, addressService, m, reg, log)

	errCh := make(chan error, 1)
	log.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("env", cfg.Environment.Name))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigChan:
		log.Info("signal received, starting graceful shutdown", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("shutdown complete")
	return nil
}
