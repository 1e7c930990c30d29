package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/order-platform/order-management/pkg/api"
	"github.com/order-platform/order-management/pkg/errors"
	"github.com/order-platform/order-management/pkg/idempotency"
	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
	"github.com/order-platform/order-management/pkg/middleware"
	"github.com/order-platform/order-management/pkg/mongodb"
	"github.com/order-platform/order-management/pkg/outbox"
	outboxMongo "github.com/order-platform/order-management/pkg/outbox/mongodb"
	"github.com/order-platform/order-management/pkg/tracing"

	"github.com/order-platform/order-management/internal/application"
	"github.com/order-platform/order-management/internal/domain"
	mongoRepo "github.com/order-platform/order-management/internal/infrastructure/mongodb"
	"github.com/order-platform/order-management/internal/infrastructure/warehouse"
)

const serviceName = "order-api"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting order management API")

	config := loadConfig()
	ctx := context.Background()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	// MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Kafka producer with instrumentation and circuit breaker
	producer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Outbox
	outboxRepo := outboxMongo.NewOutboxRepository(instrumentedMongo.Database())
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to ensure outbox indexes")
	}

	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		producer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Repositories and ledger
	orderRepo := mongoRepo.NewOrderRepository(instrumentedMongo)
	inventoryRepo := mongoRepo.NewInventoryRepository(instrumentedMongo)
	ledger := mongoRepo.NewLedgerRepository(instrumentedMongo, outboxRepo, config.LocationID, logger)

	// Warehouse client for fulfillment dispatch
	warehouseClient := warehouse.NewClient(config.Warehouse, logger)

	// Application services
	availabilityService := application.NewAvailabilityService(orderRepo, inventoryRepo, logger, m)
	orderService := application.NewOrderProcessingService(availabilityService, ledger, warehouseClient, logger, m)
	queryService := application.NewOrderQueryService(orderRepo, logger)

	// Webhook dedup store
	deliveryRepo := idempotency.NewMongoDeliveryRepository(instrumentedMongo.Database())
	if err := deliveryRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to ensure webhook delivery indexes")
	}
	dedupConfig := idempotency.DefaultConfig(serviceName, deliveryRepo)

	// Router
	router := gin.New()

	middlewareConfig := middleware.Config{
		Logger:      logger,
		ServiceName: serviceName,
		EnableCORS:  getEnv("ENABLE_CORS", "false") == "true",
	}
	middleware.Setup(router, middlewareConfig)

	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName, getEnv("SERVICE_VERSION", "dev")))
	router.GET("/ready", middleware.ReadinessCheck(map[string]func() error{
		"mongodb": func() error { return instrumentedMongo.HealthCheck(ctx) },
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// Storefront webhook, deduplicated by delivery ID
	webhooks := router.Group("/api/shopify/webhooks")
	webhooks.Use(idempotency.Middleware(dedupConfig))
	{
		webhooks.POST("/orders", processOrderHandler(orderService, logger))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders/check", checkOrderHandler(availabilityService, logger))

		orders := v1.Group("/orders")
		{
			orders.GET("/:orderId", getOrderHandler(queryService, logger))
			orders.GET("", listOrdersHandler(queryService, logger))
		}

		inventory := v1.Group("/inventory")
		{
			inventory.GET("/:productId", getInventoryHandler(inventoryRepo, logger))
			inventory.PUT("/:productId", upsertInventoryHandler(inventoryRepo, logger))
		}
	}

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
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	LocationID int64
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
	Warehouse  *warehouse.Config
}

func loadConfig() *Config {
	locationID, err := strconv.ParseInt(getEnv("STOREFRONT_LOCATION_ID", "1"), 10, 64)
	if err != nil {
		locationID = 1
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LocationID: locationID,
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "orders_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		Warehouse: &warehouse.Config{
			BaseURL:   getEnv("WAREHOUSE_API_URL", "http://localhost:8090"),
			AuthToken: getEnv("WAREHOUSE_API_TOKEN", ""),
			Timeout:   10 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func processOrderHandler(service *application.OrderProcessingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(logger)

		var dto application.ShopifyOrderDTO
		if appErr := middleware.BindAndValidate(c, &dto); appErr != nil {
			responder.RespondWithAppError(c, appErr)
			return
		}

		cmd := application.ProcessOrderCommand{
			Order:     dto,
			WebhookID: c.GetHeader(idempotency.HeaderWebhookID),
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":     dto.ID,
			"order.number": dto.OrderNumber,
			"order.items":  len(dto.LineItems),
		})

		result, err := service.ProcessOrder(c.Request.Context(), cmd)
		if err != nil {
			// Business rejections keep the webhook wire shape; only
			// infrastructure trouble surfaces as a server error.
			appErr := errors.MapDomainError(err)
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				c.JSON(http.StatusInternalServerError, result)
				return
			}
			c.JSON(http.StatusBadRequest, result)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func checkOrderHandler(service *application.AvailabilityService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(logger)

		var req application.OrderCheckRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(c, appErr)
			return
		}
		if len(req.ProductIDs) != len(req.Quantities) {
			responder.RespondBadRequest(c, "productIds and quantities must have the same length")
			return
		}

		result, err := service.Check(c.Request.Context(), application.CheckAvailabilityCommand{
			OrderID:    req.OrderID,
			ProductIDs: req.ProductIDs,
			Quantities: req.Quantities,
		})
		if err != nil {
			responder.RespondInternalError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getOrderHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(logger)

		orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest(c, "orderId must be numeric")
			return
		}

		order, err := service.GetOrder(c.Request.Context(), orderID)
		if err != nil {
			responder.RespondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(logger)

		status := domain.OrderStatus(c.DefaultQuery("status", string(domain.StatusProcessing)))
		page := api.ParsePagination(c)

		result, err := service.ListOrdersByStatus(c.Request.Context(), status, page)
		if err != nil {
			responder.RespondInternalError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// UpsertInventoryRequest seeds or adjusts a stock position
type UpsertInventoryRequest struct {
	SKU               string `json:"sku" binding:"required,sku"`
	Title             string `json:"title" binding:"required"`
	Price             string `json:"price"`
	Currency          string `json:"currency"`
	AvailableQuantity int32  `json:"availableQuantity" binding:"min=0"`
	TotalQuantity     int32  `json:"totalQuantity" binding:"min=0"`
}

func getInventoryHandler(repo domain.InventoryRepository, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(logger)

		productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest(c, "productId must be numeric")
			return
		}

		record, err := repo.FindByProductID(c.Request.Context(), productID)
		if err != nil {
			responder.RespondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, record)
	}
}

func upsertInventoryHandler(repo domain.InventoryRepository, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(logger)

		productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
		if err != nil {
			responder.RespondBadRequest(c, "productId must be numeric")
			return
		}

		var req UpsertInventoryRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(c, appErr)
			return
		}

		record := &domain.InventoryRecord{
			ProductID:         productID,
			SKU:               req.SKU,
			Title:             req.Title,
			Price:             req.Price,
			Currency:          req.Currency,
			AvailableQuantity: req.AvailableQuantity,
			TotalQuantity:     req.TotalQuantity,
		}
		if err := repo.Upsert(c.Request.Context(), record); err != nil {
			responder.RespondInternalError(c, err)
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
