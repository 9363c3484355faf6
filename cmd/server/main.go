package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atollstay/service-reservation/internal/application"
	"github.com/atollstay/service-reservation/internal/config"
	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/atollstay/service-reservation/internal/events"
	"github.com/atollstay/service-reservation/internal/handler"
	"github.com/atollstay/service-reservation/internal/platform/auth"
	"github.com/atollstay/service-reservation/internal/platform/database"
	"github.com/atollstay/service-reservation/internal/platform/health"
	"github.com/atollstay/service-reservation/internal/platform/idempotency"
	"github.com/atollstay/service-reservation/internal/platform/kafka"
	"github.com/atollstay/service-reservation/internal/platform/logger"
	"github.com/atollstay/service-reservation/internal/platform/metrics"
	"github.com/atollstay/service-reservation/internal/platform/middleware"
	"github.com/atollstay/service-reservation/internal/repository"
	"github.com/atollstay/service-reservation/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "service-reservation"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.Duration("tx_timeout", cfg.TxTimeout),
		zap.Duration("pending_ttl", cfg.PendingTTL),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis backs Idempotency-Key replay. The service runs without it.
	var redisClient *redis.Client
	var idemStore *idempotency.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid redis URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		idemStore = idempotency.NewStore(redisClient, serviceName+":idem", 24*time.Hour)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 15*time.Minute, 7*24*time.Hour)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	roomTypeRepo := repository.NewGormRoomTypeRepository(db)
	seasonRepo := repository.NewGormSeasonRepository(db)
	allotmentRepo := repository.NewGormAllotmentRepository(db)
	reservationRepo := repository.NewGormReservationRepository(db)
	auditRepo := repository.NewGormAuditRepository(db)
	uow := repository.NewGormUnitOfWork(db, cfg.TxTimeout)

	// Initialize application services
	recorder := metrics.NewRecorder()
	resolver := application.NewPriceResolver(seasonRepo, pricing.NewStandardCalculator())
	availabilityService := application.NewAvailabilityService(
		roomTypeRepo, allotmentRepo, resolver, cfg.DefaultCurrency, recorder, log,
	)
	reservationService := application.NewReservationService(
		uow, reservationRepo, roomTypeRepo, availabilityService, kafkaProducer, recorder, log,
	)
	auditService := application.NewAuditService(auditRepo, reservationRepo, log)
	reportService := application.NewReportService(allotmentRepo, log)
	catalogService := application.NewCatalogService(roomTypeRepo)

	// Initialize and start payment event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "reservation-service"
	paymentConsumer := events.NewPaymentEventConsumer(cfg.KafkaConfig.Brokers, groupID, reservationService, log)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	// Start the pending-expiry sweep
	expiry, err := scheduler.NewExpiryScheduler(reservationService, cfg.PendingTTL, cfg.ExpiryInterval, log)
	if err != nil {
		log.Fatal("failed to create expiry scheduler", zap.Error(err))
	}
	if err := expiry.Start(); err != nil {
		log.Fatal("failed to start expiry scheduler", zap.Error(err))
	}

	// Setup Gin router
	if err := handler.RegisterValidators(); err != nil {
		log.Fatal("failed to register validators", zap.Error(err))
	}
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check and metrics routes
	health.NewHandler(db, redisClient, serviceName).RegisterRoutes(router)
	metrics.RegisterRoutes(router)

	// Register routes
	handler.NewAvailabilityHandler(availabilityService).RegisterRoutes(&router.RouterGroup)
	handler.NewReservationHandler(reservationService, idemStore, log).RegisterRoutes(&router.RouterGroup)
	handler.NewCatalogHandler(catalogService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminReservationHandler(reservationService, auditService, reportService).
		RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server. WriteTimeout leaves room for a full reservation transaction.
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TxTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	if err := expiry.Shutdown(); err != nil {
		log.Warn("expiry scheduler shutdown", zap.Error(err))
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
