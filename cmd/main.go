package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"pharmacy-intelligence-service/internal/config"
	"pharmacy-intelligence-service/internal/database"
	"pharmacy-intelligence-service/internal/events"
	"pharmacy-intelligence-service/internal/handlers"
	"pharmacy-intelligence-service/internal/middleware"
	"pharmacy-intelligence-service/internal/repository"
	"pharmacy-intelligence-service/internal/secrets"
	"pharmacy-intelligence-service/internal/services"
	"pharmacy-intelligence-service/internal/sources/directdb"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg := config.Load()
	if cfg.Environment == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Warn("Auto-migration failed")
	}
	logger.Info("Database models migrated")

	// Initialize GCP Secret Manager
	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		secretManager, err = secrets.NewGCPSecretManager(context.Background(), cfg.GCPProjectID)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize GCP Secret Manager")
		} else {
			logger.Info("GCP Secret Manager initialized")
		}
	}

	// Initialize repositories
	connectorRepo := repository.NewConnectorRepository(db)
	runRepo := repository.NewSyncRunRepository(db)
	stockRepo := repository.NewStockRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	// Initialize source reader and event publisher
	var resolver directdb.SecretResolver
	if secretManager != nil {
		resolver = secretManager
	}
	reader := directdb.NewReader(float64(cfg.SourcePullRate), resolver)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	// Initialize services
	syncService := services.NewSyncService(connectorRepo, runRepo, stockRepo, alertRepo, matchRepo, catalogRepo, reader, publisher, logger, cfg.SourceReadTimeout)
	connectorService := services.NewConnectorService(connectorRepo, runRepo, logger)

	// Start the auto-sync scheduler
	if cfg.SchedulerEnabled {
		scheduler := services.NewScheduler(connectorRepo, syncService, logger)
		if err := scheduler.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start scheduler")
		}
		defer scheduler.Stop()
	} else {
		logger.Info("Auto-sync scheduler disabled")
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	connectorHandler := handlers.NewConnectorHandler(connectorService, syncService)
	stockHandler := handlers.NewStockHandler(stockRepo, alertRepo, matchRepo)

	router := setupRouter(cfg, healthHandler, connectorHandler, stockHandler)

	logger.WithFields(logrus.Fields{
		"port": cfg.Port,
		"env":  cfg.Environment,
	}).Info("Pharmacy Intelligence Service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	connectorHandler *handlers.ConnectorHandler,
	stockHandler *handlers.StockHandler,
) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/connectors/blueprints", connectorHandler.ListBlueprints)

		retailers := v1.Group("/retailers/:retailerId")
		{
			retailers.POST("/connectors", connectorHandler.CreateConnector)
			retailers.GET("/connectors", connectorHandler.ListConnectors)
			retailers.POST("/connectors/:connectorId/sync", connectorHandler.SyncConnector)
			retailers.POST("/connectors/:connectorId/sync/raw", connectorHandler.SyncRawConnector)
			retailers.GET("/connectors/:connectorId/runs", connectorHandler.ListRuns)

			retailers.GET("/stocks", stockHandler.ListStocks)
			retailers.GET("/alerts", stockHandler.ListAlerts)
			retailers.GET("/matches", stockHandler.ListMatches)
		}

		v1.GET("/distributors/:distributorId/opportunities", stockHandler.ListOpportunities)
	}

	return router
}
