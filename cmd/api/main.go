package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"target-onchain-shopify-app/internal/application"
	"target-onchain-shopify-app/internal/application/webhook_handlers"
	"target-onchain-shopify-app/internal/config"
	apiinfra "target-onchain-shopify-app/internal/infrastructure/api"
	"target-onchain-shopify-app/internal/infrastructure/clerk"
	"target-onchain-shopify-app/internal/infrastructure/metrics"
	"target-onchain-shopify-app/internal/infrastructure/pubsub"
	"target-onchain-shopify-app/internal/infrastructure/repository"
	shopifyinfra "target-onchain-shopify-app/internal/infrastructure/shopify"
	"target-onchain-shopify-app/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	mongoDB := client.Database(cfg.MongoDatabase)
	sessionRepo := repository.NewMongoSessionRepository(mongoDB)
	if err := sessionRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure session indexes")
	}
	webhookLog := repository.NewMongoWebhookLogRepository(mongoDB)
	if err := webhookLog.EnsureIndexes(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure webhook log indexes")
	}

	// Frames live in the relational store, migrated on open
	frameDB, err := repository.OpenFrameDB(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open frame database")
	}
	frameRepo := repository.NewGormFrameRepository(frameDB)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Handshake relay: Redis when several instances share the traffic
	var bus ports.MessageBus
	var handshakes ports.HandshakeStore
	handshakeTTL := cfg.HandshakeTimeout + time.Minute
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		bus = pubsub.NewRedisMessageBus(redisClient, logger)
		handshakes = pubsub.NewRedisHandshakeStore(redisClient, handshakeTTL)
		logger.Info().Msg("Using Redis for the handshake relay")
	} else {
		bus = pubsub.NewMemoryMessageBus(logger)
		handshakes = pubsub.NewMemoryHandshakeStore(handshakeTTL)
	}

	// Initialize infrastructure (implementations)
	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, strings.Split(cfg.Scopes, ","), cfg.AppURL, logger)
	clerkClient := clerk.NewClient(cfg.ClerkURL, nil, appMetrics, logger)
	verifier := shopifyinfra.NewSessionTokenVerifier(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret)

	// Initialize application services
	shopifyService := application.NewShopifyService(sessionRepo, shopifyClient, cfg.Scopes, logger)
	frameService := application.NewFrameService(frameRepo, shopifyClient, appMetrics, logger)
	accountService := application.NewAccountService(sessionRepo, clerkClient, bus, handshakes, appMetrics, logger, application.LinkerConfig{
		AppOrigin: cfg.AppOrigin(),
		SignInURL: cfg.SignInURL(),
		Timeout:   cfg.HandshakeTimeout,
	})
	webhookService := application.NewWebhookService(webhookLog, appMetrics, logger,
		webhook_handlers.NewAppUninstalledHandler(logger, sessionRepo),
		webhook_handlers.NewProductHandler(logger, frameService),
		webhook_handlers.NewComplianceHandler(logger, frameService, webhookLog),
	)

	router := apiinfra.NewRouter(apiinfra.RouterConfig{
		Frames:   frameService,
		Accounts: accountService,
		Shopify:  shopifyService,
		Webhooks: webhookService,
		Verifier: verifier,
		AppURL:   cfg.AppURL,
		APIKey:   cfg.ShopifyAPIKey,
		TermsURL: cfg.TermsAndConditionsURL(),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}
