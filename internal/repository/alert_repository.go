package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-intelligence-service/internal/models"
)

// AlertRepositoryInterface defines stock-alert persistence operations
type AlertRepositoryInterface interface {
	ReplaceOpenAlerts(ctx context.Context, retailerID uuid.UUID, alerts []models.StockAlert) error
	ListOpenByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.StockAlert, error)
}

// AlertRepository handles database operations for stock alerts
type AlertRepository struct {
	db *gorm.DB
}

// Ensure AlertRepository implements the interface
var _ AlertRepositoryInterface = (*AlertRepository)(nil)

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// ReplaceOpenAlerts deletes the retailer's OPEN alert set and inserts the new
// one in a single transaction, so readers never observe a half-rebuilt set.
func (r *AlertRepository) ReplaceOpenAlerts(ctx context.Context, retailerID uuid.UUID, alerts []models.StockAlert) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("retailer_id = ? AND status = ?", retailerID, models.AlertOpen).
			Delete(&models.StockAlert{}).Error; err != nil {
			return err
		}
		if len(alerts) == 0 {
			return nil
		}
		return tx.Create(&alerts).Error
	})
}

// ListOpenByRetailer retrieves OPEN alerts, most severe and most recent first
func (r *AlertRepository) ListOpenByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.StockAlert, error) {
	var alerts []models.StockAlert
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND status = ?", retailerID, models.AlertOpen).
		Preload("Stock").
		Preload("Stock.Product").
		Order("severity DESC").
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}
