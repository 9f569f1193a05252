package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharmacy-intelligence-service/internal/models"
)

// Connect opens the service database. A sqlite:// URL opens an embedded
// SQLite file for local development; anything else is treated as a
// PostgreSQL DSN.
func Connect(databaseURL, environment string) (*gorm.DB, error) {
	logLevel := logger.Warn
	if environment == "development" {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error
	if strings.HasPrefix(databaseURL, "sqlite://") {
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the service's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Retailer{},
		&models.Distributor{},
		&models.ProductMaster{},
		&models.DistributorInventory{},
		&models.PharmacyConnector{},
		&models.ConnectorSyncRun{},
		&models.RetailerStock{},
		&models.StockAlert{},
		&models.StockMatch{},
	)
}
