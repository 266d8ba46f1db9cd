package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// backend is satisfied by both the Postgres and the in-memory store
type backend interface {
	service.OrderLedger
	service.ProductRepository
	service.ProfileReader
	service.EventLog
	Ping(ctx context.Context) error
}

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	if err := util.InitLogger(util.LogOptions{
		Env:     cfg.Server.Env,
		Service: "storefront-service",
		Level:   cfg.Observ.LogLevel,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer(util.TraceOptions{
		Service:        "storefront-service",
		Env:            cfg.Server.Env,
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		SampleRatio:    cfg.Observ.TraceSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	var db backend
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		db = store.NewMemoryStore()
	} else {
		pg, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()

		if err := pg.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		db = pg
		logger.Info("Database connected")
	}

	checks := map[string]api.Pinger{"database": db}

	var limiter service.AttemptLimiter
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		limiter = redisclient.NewAttemptLimiter(redisClient, cfg.Business.UnlockMaxAttempts,
			time.Duration(cfg.Business.UnlockWindowSeconds)*time.Second)
		checks["redis"] = redisClient
		logger.Info("Redis connected")
	} else {
		logger.Warn("Redis disabled, unlock attempts are not throttled")
	}

	mailer := service.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.Mock)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var (
		dispatcher         service.ReceiptDispatcher
		events             service.EventSink
		notificationWorker *worker.NotificationWorker
	)
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()

		publisher := broker.NewEventPublisher(producer)
		dispatcher = publisher
		events = publisher

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, service.NewReceiptNotifier(db, mailer))
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
		logger.Info("Kafka pipeline initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		logger.Warn("Kafka disabled, receipts are sent inline")
		dispatcher = service.NewDirectDispatcher(mailer)
	}

	resolver := service.NewDeliveryResolver(
		db, db, db,
		service.NewRandomKeyGenerator(),
		dispatcher,
		events,
		cfg.Payment.Currency,
		cfg.Server.PublicBaseURL,
	)
	gate := service.NewAccessGate(db, db, limiter,
		service.NewViewerTokens(cfg.Auth.ViewerTokenSecret, time.Duration(cfg.Auth.ViewerTokenTTLSecs)*time.Second))

	storage, err := service.NewStoragePolicy(cfg.Storage.BaseURL)
	if err != nil {
		log.Fatalf("Invalid STORAGE_BASE_URL: %v", err)
	}
	if cfg.Storage.BaseURL == "" {
		logger.Warn("STORAGE_BASE_URL not set, product files may point at any host")
	}

	if cfg.Payment.PaystackSecretKey == "" {
		logger.Warn("PAYSTACK_SECRET_KEY not set, callbacks are trusted without verification")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Options{
		Catalog:  service.NewCatalogService(db, db, cfg.Payment.Currency, storage),
		Orders:   service.NewOrderService(db, db),
		Resolver: resolver,
		Gate:     gate,
		Gateway:  service.NewPaystackGateway(cfg.Payment.PaystackSecretKey, cfg.Payment.PaystackBaseURL),
		Auth:     service.NewSellerAuthenticator(cfg.Auth.JWTSecret),
		Blobs:    service.NewHTTPBlobFetcher(storage),
		Checks:   checks,
		BaseURL:  cfg.Server.PublicBaseURL,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if notificationWorker != nil {
		if err := notificationWorker.Stop(); err != nil {
			logger.Warn("Error stopping notification worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
