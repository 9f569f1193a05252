package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncRecord is a normalized stock record ready for the sync pipeline, either
// submitted pre-normalized by the caller or produced by the field mapper.
// Pointer fields distinguish "no value" from an empty value.
type SyncRecord struct {
	SKU                 *string `json:"sku,omitempty"`
	ProductName         string  `json:"productName" binding:"required"`
	GenericName         *string `json:"genericName,omitempty"`
	BatchNumber         *string `json:"batchNumber,omitempty"`
	Quantity            int     `json:"quantity" binding:"min=0"`
	Expiry              *string `json:"expiry,omitempty"`
	DistributorName     *string `json:"distributorName,omitempty"`
	DistributorContact  *string `json:"distributorContact,omitempty"`
	DistributorLocation *string `json:"distributorLocation,omitempty"`
}

// RetailerStock is the normalized per-retailer mirror of externally sourced
// inventory. At most one row exists per (retailer, product name, batch number);
// an empty batch number is a valid distinct batch. Rows are never aged out by
// the service — staleness is visible via LastSeenAt.
type RetailerStock struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RetailerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_retailer_stocks_identity,priority:1;index:idx_retailer_stocks_retailer" json:"retailerId"`

	ConnectorID *uuid.UUID `gorm:"type:uuid" json:"connectorId,omitempty"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"productId,omitempty"`
	ExternalSKU *string    `gorm:"type:varchar(255)" json:"externalSku,omitempty"`

	ProductName string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_retailer_stocks_identity,priority:2" json:"productName"`
	GenericName *string `gorm:"type:varchar(255)" json:"genericName,omitempty"`
	BatchNumber string  `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_retailer_stocks_identity,priority:3" json:"batchNumber"`

	Quantity int        `gorm:"not null;default:0" json:"quantity"`
	Expiry   *time.Time `json:"expiry,omitempty"`

	// Free-text display hints from the external system, used when the row is
	// not backed by a catalog distributor.
	DistributorName     *string `gorm:"type:varchar(255)" json:"distributorName,omitempty"`
	DistributorContact  *string `gorm:"type:varchar(100)" json:"distributorContact,omitempty"`
	DistributorLocation *string `gorm:"type:varchar(255)" json:"distributorLocation,omitempty"`

	LastSeenAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"lastSeenAt"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	Product   *ProductMaster     `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Connector *PharmacyConnector `gorm:"foreignKey:ConnectorID" json:"connector,omitempty"`
	Retailer  *Retailer          `gorm:"foreignKey:RetailerID" json:"retailer,omitempty"`
}

// TableName specifies the table name for RetailerStock
func (RetailerStock) TableName() string {
	return "retailer_stocks"
}

// AlertType represents the risk condition a stock alert reports
type AlertType string

const (
	AlertLowStock   AlertType = "LOW_STOCK"
	AlertNearExpiry AlertType = "NEAR_EXPIRY"
)

// AlertSeverity represents how urgent an alert is
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "HIGH"
	SeverityMedium AlertSeverity = "MEDIUM"
	// SeverityLow is reserved; current rules never emit it.
	SeverityLow AlertSeverity = "LOW"
)

// AlertStatus represents the lifecycle status of an alert
type AlertStatus string

const (
	AlertOpen AlertStatus = "OPEN"
)

// StockAlert is a derived risk condition on one stock row. The OPEN set for a
// retailer is fully recomputed on every sync, so at most one alert per type
// exists per stock row.
type StockAlert struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RetailerID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_alerts_retailer" json:"retailerId"`
	StockID    uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_alerts_stock" json:"stockId"`

	Type           AlertType     `gorm:"type:varchar(50);not null" json:"type"`
	Severity       AlertSeverity `gorm:"type:varchar(20);not null" json:"severity"`
	ThresholdValue *int          `json:"thresholdValue,omitempty"`
	Message        string        `gorm:"type:text;not null" json:"message"`
	Status         AlertStatus   `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`

	// Relationships
	Stock *RetailerStock `gorm:"foreignKey:StockID" json:"stock,omitempty"`
}

// TableName specifies the table name for StockAlert
func (StockAlert) TableName() string {
	return "stock_alerts"
}

// StockMatch links an at-risk stock row to a distributor inventory row that
// could replenish it, with the ranking score and its breakdown. All matches
// for a retailer are recomputed on every sync; at most 5 persist per stock row.
type StockMatch struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StockID                uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_matches_stock" json:"stockId"`
	DistributorInventoryID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_matches_inventory" json:"distributorInventoryId"`

	Score  float64 `gorm:"not null" json:"score"`
	Reason string  `gorm:"type:text" json:"reason"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`

	// Relationships
	Stock                *RetailerStock        `gorm:"foreignKey:StockID" json:"stock,omitempty"`
	DistributorInventory *DistributorInventory `gorm:"foreignKey:DistributorInventoryID" json:"distributorInventory,omitempty"`
}

// TableName specifies the table name for StockMatch
func (StockMatch) TableName() string {
	return "stock_matches"
}
