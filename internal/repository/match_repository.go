package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-intelligence-service/internal/models"
)

// MatchRepositoryInterface defines stock-match persistence operations
type MatchRepositoryInterface interface {
	ReplaceForRetailer(ctx context.Context, retailerID uuid.UUID, matches []models.StockMatch) error
	ListByRetailer(ctx context.Context, retailerID uuid.UUID, stockID *uuid.UUID, limit int) ([]models.StockMatch, error)
	ListByDistributor(ctx context.Context, distributorID uuid.UUID, limit int) ([]models.StockMatch, error)
}

// MatchRepository handles database operations for stock matches
type MatchRepository struct {
	db *gorm.DB
}

// Ensure MatchRepository implements the interface
var _ MatchRepositoryInterface = (*MatchRepository)(nil)

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// ReplaceForRetailer deletes every match across the retailer's stock rows and
// inserts the recomputed set in a single transaction.
func (r *MatchRepository) ReplaceForRetailer(ctx context.Context, retailerID uuid.UUID, matches []models.StockMatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("stock_id IN (?)", tx.Model(&models.RetailerStock{}).
				Select("id").
				Where("retailer_id = ?", retailerID)).
			Delete(&models.StockMatch{}).Error; err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}
		return tx.Create(&matches).Error
	})
}

// ListByRetailer retrieves matches for a retailer ordered by score, optionally
// narrowed to one stock row.
func (r *MatchRepository) ListByRetailer(ctx context.Context, retailerID uuid.UUID, stockID *uuid.UUID, limit int) ([]models.StockMatch, error) {
	var matches []models.StockMatch
	query := r.db.WithContext(ctx).
		Joins("JOIN retailer_stocks ON retailer_stocks.id = stock_matches.stock_id").
		Where("retailer_stocks.retailer_id = ?", retailerID)
	if stockID != nil {
		query = query.Where("stock_matches.stock_id = ?", *stockID)
	}
	err := query.
		Preload("Stock").
		Preload("DistributorInventory").
		Preload("DistributorInventory.Product").
		Preload("DistributorInventory.Distributor").
		Order("score DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}

// ListByDistributor retrieves matches touching a distributor's inventory
// across all retailers, highest score first.
func (r *MatchRepository) ListByDistributor(ctx context.Context, distributorID uuid.UUID, limit int) ([]models.StockMatch, error) {
	var matches []models.StockMatch
	err := r.db.WithContext(ctx).
		Joins("JOIN distributor_inventories ON distributor_inventories.id = stock_matches.distributor_inventory_id").
		Where("distributor_inventories.distributor_id = ?", distributorID).
		Preload("Stock").
		Preload("Stock.Retailer").
		Preload("DistributorInventory").
		Preload("DistributorInventory.Product").
		Order("score DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}
