package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-intelligence-service/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// ConnectorRepositoryInterface defines the connector persistence operations
type ConnectorRepositoryInterface interface {
	Create(ctx context.Context, connector *models.PharmacyConnector) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PharmacyConnector, error)
	GetByIDForRetailer(ctx context.Context, retailerID, id uuid.UUID) (*models.PharmacyConnector, error)
	ListByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.PharmacyConnector, error)
	ListActive(ctx context.Context, limit int) ([]models.PharmacyConnector, error)
	UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
}

// ConnectorRepository handles database operations for pharmacy connectors
type ConnectorRepository struct {
	db *gorm.DB
}

// Ensure ConnectorRepository implements the interface
var _ ConnectorRepositoryInterface = (*ConnectorRepository)(nil)

// NewConnectorRepository creates a new connector repository
func NewConnectorRepository(db *gorm.DB) *ConnectorRepository {
	return &ConnectorRepository{db: db}
}

// Create inserts a new connector
func (r *ConnectorRepository) Create(ctx context.Context, connector *models.PharmacyConnector) error {
	return r.db.WithContext(ctx).Create(connector).Error
}

// GetByID retrieves a connector by ID without retailer scoping. Used by the
// scheduler, which runs on behalf of every retailer.
func (r *ConnectorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PharmacyConnector, error) {
	var connector models.PharmacyConnector
	err := r.db.WithContext(ctx).First(&connector, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &connector, nil
}

// GetByIDForRetailer retrieves a connector owned by the given retailer
func (r *ConnectorRepository) GetByIDForRetailer(ctx context.Context, retailerID, id uuid.UUID) (*models.PharmacyConnector, error) {
	var connector models.PharmacyConnector
	err := r.db.WithContext(ctx).
		Where("id = ? AND retailer_id = ?", id, retailerID).
		First(&connector).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &connector, nil
}

// ListByRetailer retrieves all connectors for a retailer, newest first
func (r *ConnectorRepository) ListByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.PharmacyConnector, error) {
	var connectors []models.PharmacyConnector
	err := r.db.WithContext(ctx).
		Where("retailer_id = ?", retailerID).
		Order("created_at DESC").
		Find(&connectors).Error
	return connectors, err
}

// ListActive retrieves ACTIVE connectors with only the fields the scheduler
// needs to decide which ones are due.
func (r *ConnectorRepository) ListActive(ctx context.Context, limit int) ([]models.PharmacyConnector, error) {
	var connectors []models.PharmacyConnector
	err := r.db.WithContext(ctx).
		Select("id", "retailer_id", "name", "sync_interval_minutes", "last_synced_at", "config").
		Where("status = ?", models.ConnectorActive).
		Limit(limit).
		Find(&connectors).Error
	return connectors, err
}

// UpdateLastSyncedAt records the completion time of a successful sync
func (r *ConnectorRepository) UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PharmacyConnector{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_synced_at": syncedAt,
			"updated_at":     time.Now(),
		}).Error
}
