package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pharmacy-intelligence-service/internal/models"
)

// StockRepositoryInterface defines stock-mirror persistence operations
type StockRepositoryInterface interface {
	Upsert(ctx context.Context, stock *models.RetailerStock) error
	ListByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerStock, error)
	ListForRebuild(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerStock, error)
}

// StockRepository handles database operations for the retailer stock mirror
type StockRepository struct {
	db *gorm.DB
}

// Ensure StockRepository implements the interface
var _ StockRepositoryInterface = (*StockRepository)(nil)

// NewStockRepository creates a new stock repository
func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// Upsert inserts or updates a mirror row keyed by (retailer, product name,
// batch number). A re-sent row overwrites all mutable fields in place.
func (r *StockRepository) Upsert(ctx context.Context, stock *models.RetailerStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "retailer_id"},
				{Name: "product_name"},
				{Name: "batch_number"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"connector_id",
				"product_id",
				"external_sku",
				"generic_name",
				"quantity",
				"expiry",
				"distributor_name",
				"distributor_contact",
				"distributor_location",
				"last_seen_at",
				"updated_at",
			}),
		}).
		Create(stock).Error
}

// ListByRetailer retrieves the stock mirror for display: most at-risk first
func (r *StockRepository) ListByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerStock, error) {
	var stocks []models.RetailerStock
	err := r.db.WithContext(ctx).
		Where("retailer_id = ?", retailerID).
		Preload("Product").
		Preload("Connector").
		Order("quantity ASC").
		Order("expiry ASC").
		Find(&stocks).Error
	return stocks, err
}

// ListForRebuild retrieves every mirror row for a retailer with the retailer
// loaded, as input to the alert and match rebuild.
func (r *StockRepository) ListForRebuild(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerStock, error) {
	var stocks []models.RetailerStock
	err := r.db.WithContext(ctx).
		Where("retailer_id = ?", retailerID).
		Preload("Retailer").
		Find(&stocks).Error
	return stocks, err
}
