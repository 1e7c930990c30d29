package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/order-platform/order-management/pkg/contracts/asyncapi"
	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
	"github.com/order-platform/order-management/pkg/middleware"
	"github.com/order-platform/order-management/pkg/tracing"

	"github.com/order-platform/order-management/internal/application"
	"github.com/order-platform/order-management/internal/infrastructure/messaging"
	"github.com/order-platform/order-management/internal/infrastructure/storefront"
)

const serviceName = "inventory-syncworker"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inventory sync worker")

	config := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Storefront client
	storefrontClient := storefront.NewClient(config.Storefront, logger)

	// Sync service and consumer
	syncService := application.NewInventorySyncService(storefrontClient, logger, m)

	var validator *asyncapi.EventValidator
	if config.AsyncAPISpec != "" {
		validator, err = asyncapi.NewEventValidator(config.AsyncAPISpec)
		if err != nil {
			logger.WithError(err).Warn("Contract validation disabled, spec could not be loaded",
				"path", config.AsyncAPISpec)
			validator = nil
		} else {
			logger.Info("Contract validation enabled", "path", config.AsyncAPISpec)
		}
	}

	kafkaConsumer := kafka.NewConsumer(config.Kafka, logger.Logger)
	instrumentedConsumer := kafka.NewInstrumentedConsumer(kafkaConsumer, m, logger)

	consumer := messaging.NewInventoryConsumer(instrumentedConsumer, syncService, validator, logger)
	defer consumer.Close()

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Start(ctx)
	}()

	// Operational endpoints
	router := gin.New()
	middleware.SetupMinimal(router, logger)
	router.GET("/health", middleware.HealthCheck(serviceName, getEnv("SERVICE_VERSION", "dev")))
	router.GET("/ready", middleware.ReadinessCheck(map[string]func() error{}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Worker started", "addr", config.ServerAddr, "topic", kafka.Topics.InventoryUpdates)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down worker...")
	case err := <-consumerDone:
		if err != nil && err != context.Canceled {
			logger.WithError(err).Error("Consumer stopped unexpectedly")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Worker stopped")
}

// Config holds worker configuration
type Config struct {
	ServerAddr   string
	AsyncAPISpec string
	Kafka        *kafka.Config
	Storefront   *storefront.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8081"),
		AsyncAPISpec: getEnv("ASYNCAPI_SPEC_PATH", "api/asyncapi.yaml"),
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", serviceName),
			ClientID:      serviceName,
			MinBytes:      1,
			MaxBytes:      10e6,
			MaxWait:       500 * time.Millisecond,
			CommitTimeout: 5 * time.Second,
		},
		Storefront: &storefront.Config{
			BaseURL:     getEnv("STOREFRONT_API_URL", "http://localhost:8091"),
			AccessToken: getEnv("STOREFRONT_ACCESS_TOKEN", ""),
			APIVersion:  getEnv("STOREFRONT_API_VERSION", storefront.DefaultAPIVersion),
			Timeout:     10 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
