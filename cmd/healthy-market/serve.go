package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/healthymarket/healthy-market/internal/analytics"
	"github.com/healthymarket/healthy-market/internal/cart"
	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/checkout"
	"github.com/healthymarket/healthy-market/internal/config"
	"github.com/healthymarket/healthy-market/internal/events"
	apihttp "github.com/healthymarket/healthy-market/internal/http"
	"github.com/healthymarket/healthy-market/internal/metrics"
	"github.com/healthymarket/healthy-market/internal/orders"
	"github.com/healthymarket/healthy-market/internal/payment"
	"github.com/healthymarket/healthy-market/internal/repository"
	"github.com/healthymarket/healthy-market/pkg/circuitbreaker"
	"github.com/healthymarket/healthy-market/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			return serve(cfg, migrateFirst)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply index migrations before serving")
	return cmd
}

func serve(cfg *config.Config, migrateFirst bool) error {
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateFirst {
		if err := repository.RunMigrations(cfg.MongoURI, cfg.MongoDBName, cfg.MigrationsDir); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	// Set up MongoDB connection
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	mongo, err := repository.Connect(connectCtx, cfg.MongoURI, cfg.MongoDBName, repository.DefaultPoolOptions)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongo.Close(closeCtx); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	productRepo := catalog.NewMongoRepository(mongo.DB)
	orderRepo := orders.NewMongoRepository(mongo.DB)
	analyticsRepo := analytics.NewMongoRepository(mongo.DB)

	carts := cart.NewService(cart.NewRedisStorage(redisClient, cfg.CartTTL), productRepo, log)

	var decider payment.Decider = payment.ApproveAll{}
	if cfg.PaymentApprovePercent < 100 {
		decider = payment.RandomDecider{ApprovePercent: cfg.PaymentApprovePercent}
	}
	payments := payment.NewBreakerGateway(
		payment.NewSimulatedGateway(decider, cfg.PaymentLatency),
		circuitbreaker.DefaultSettings("payment"),
		log)

	var wg sync.WaitGroup
	var publisher events.Publisher = analytics.LedgerPublisher{Recorder: analyticsRepo}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers...)

		consumer := analytics.NewSalesConsumer(analyticsRepo, log, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			consumer.Run(ctx)
		}()
		log.Info("kafka enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing event publisher failed", zap.Error(err))
		}
	}()

	checkoutSvc := checkout.NewService(checkout.Deps{
		Orders:    orderRepo,
		Carts:     carts,
		Payments:  payments,
		Catalog:   productRepo,
		Guard:     checkout.NewRedisGuard(redisClient, cfg.IdempotencyTTL),
		Publisher: publisher,
		Metrics:   metrics.NewCheckout(registry),
	}, cfg.PaymentTimeout, log)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		JWTSecret:          []byte(cfg.JWTSecret),
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, apihttp.Deps{
		Carts:     carts,
		Checkout:  checkoutSvc,
		Orders:    orderRepo,
		Products:  productRepo,
		Analytics: analytics.NewService(analyticsRepo, log),
		Health: func(ctx context.Context) error {
			if err := mongo.Ping(ctx); err != nil {
				return fmt.Errorf("mongo: %w", err)
			}
			return redisClient.Ping(ctx).Err()
		},
		Metrics:        metrics.NewHTTP(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "healthy-market"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("API starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	stop()
	wg.Wait()
	log.Info("server exited")
	return nil
}
