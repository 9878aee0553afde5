package main

import (
	"pharmacy-connector/internal/handler"
	mid "pharmacy-connector/internal/middleware"
	"pharmacy-connector/pkg/config"
	"pharmacy-connector/pkg/database"
	"pharmacy-connector/pkg/logger"
	"pharmacy-connector/prometheus"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Just log a warning, don't fail if .env file is not found
		// This allows the service to run in environments where env vars are set differently
		// such as production environments with proper environment configuration
		// The fallback values will be used in case env vars are not set
	}

	// Load configuration
	appConfig, err := config.Load("pharmacy-connector")
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting pharmacy-connector",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if appConfig.Auth.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY is not set, pharmacy management endpoints will reject all requests")
	}

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Pharmacy management routes - gated by the operator admin key
	pharmacyAPI := e.Group("/api/pharmacies", mid.AdminAuthMiddleware(appConfig.Auth.AdminAPIKey))
	pharmacyAPI.GET("", handler.ListPharmacies)
	pharmacyAPI.GET("/:id", handler.GetPharmacy)
	pharmacyAPI.POST("", handler.CreatePharmacy)
	pharmacyAPI.PUT("/:id", handler.UpdatePharmacy)
	pharmacyAPI.DELETE("/:id", handler.DeletePharmacy)

	// Inventory API routes - Apply auth middleware to resolve the acting pharmacy
	inventoryAPI := e.Group("/api/inventory", mid.APIKeyAuthMiddleware)
	inventoryAPI.GET("", handler.ListInventoryItems)
	inventoryAPI.GET("/:id", handler.GetInventoryItem)
	inventoryAPI.POST("", handler.CreateInventoryItem)
	inventoryAPI.PUT("/:id", handler.UpdateInventoryItem)
	inventoryAPI.DELETE("/:id", handler.DeleteInventoryItem)

	// Sales API routes
	salesAPI := e.Group("/api/sales", mid.APIKeyAuthMiddleware)
	salesAPI.GET("", handler.ListSales)
	salesAPI.GET("/:id", handler.GetSale)
	salesAPI.POST("", handler.CreateSale)
	salesAPI.PUT("/:id", handler.UpdateSale)
	salesAPI.DELETE("/:id", handler.DeleteSale)

	// Orders API routes
	ordersAPI := e.Group("/api/orders", mid.APIKeyAuthMiddleware)
	ordersAPI.GET("", handler.ListOrders)
	ordersAPI.GET("/:id", handler.GetOrder)
	ordersAPI.POST("", handler.CreateOrder)
	ordersAPI.PUT("/:id", handler.UpdateOrder)
	ordersAPI.DELETE("/:id", handler.DeleteOrder)

	// Webhook events API routes
	webhookAPI := e.Group("/api/webhook-events", mid.APIKeyAuthMiddleware)
	webhookAPI.GET("", handler.ListWebhookEvents)
	webhookAPI.GET("/:id", handler.GetWebhookEvent)
	webhookAPI.POST("", handler.CreateWebhookEvent)
	webhookAPI.PUT("/:id", handler.UpdateWebhookEvent)
	webhookAPI.DELETE("/:id", handler.DeleteWebhookEvent)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
