package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-intelligence-service/internal/models"
)

// CatalogRepositoryInterface defines read operations against the product
// catalog and distributor inventory, both owned by other parts of the system.
type CatalogRepositoryInterface interface {
	FindProductBySKU(ctx context.Context, code string) (*models.ProductMaster, error)
	FindProductByName(ctx context.Context, name string, genericName *string) (*models.ProductMaster, error)
	FindCandidates(ctx context.Context, productID *uuid.UUID, productName string, limit int) ([]models.DistributorInventory, error)
	GetRetailer(ctx context.Context, id uuid.UUID) (*models.Retailer, error)
}

// CatalogRepository handles read-only catalog and inventory lookups
type CatalogRepository struct {
	db *gorm.DB
}

// Ensure CatalogRepository implements the interface
var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindProductBySKU looks up a catalog product by its catalog code. A missing
// product is not an error: (nil, nil).
func (r *CatalogRepository) FindProductBySKU(ctx context.Context, code string) (*models.ProductMaster, error) {
	var product models.ProductMaster
	err := r.db.WithContext(ctx).Where("hsn_code = ?", code).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByName looks up a catalog product by exact name, or exact generic
// name when one is given. A missing product is not an error: (nil, nil).
func (r *CatalogRepository) FindProductByName(ctx context.Context, name string, genericName *string) (*models.ProductMaster, error) {
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if genericName != nil {
		query = r.db.WithContext(ctx).Where("name = ? OR generic_name = ?", name, *genericName)
	}
	var product models.ProductMaster
	err := query.First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindCandidates gathers distributor inventory rows with stock on hand that
// could fulfil the given product: by catalog product when resolved, otherwise
// by a contains match on the catalog product name.
func (r *CatalogRepository) FindCandidates(ctx context.Context, productID *uuid.UUID, productName string, limit int) ([]models.DistributorInventory, error) {
	var candidates []models.DistributorInventory
	query := r.db.WithContext(ctx).Where("distributor_inventories.stock > 0")
	if productID != nil {
		query = query.Where("distributor_inventories.product_id = ?", *productID)
	} else {
		query = query.
			Joins("JOIN product_masters ON product_masters.id = distributor_inventories.product_id").
			Where("product_masters.name LIKE ?", "%"+productName+"%")
	}
	err := query.
		Preload("Distributor").
		Limit(limit).
		Find(&candidates).Error
	return candidates, err
}

// GetRetailer retrieves a retailer by ID
func (r *CatalogRepository) GetRetailer(ctx context.Context, id uuid.UUID) (*models.Retailer, error) {
	var retailer models.Retailer
	err := r.db.WithContext(ctx).First(&retailer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &retailer, nil
}
