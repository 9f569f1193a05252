package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-intelligence-service/internal/models"
)

// SyncRunRepositoryInterface defines sync-run persistence operations
type SyncRunRepositoryInterface interface {
	CreateRun(ctx context.Context, run *models.ConnectorSyncRun) error
	FinalizeRun(ctx context.Context, id uuid.UUID, status models.SyncRunStatus, recordsUpserted int, errorMessage string) error
	ListRunsByConnector(ctx context.Context, connectorID uuid.UUID, limit int) ([]models.ConnectorSyncRun, error)
}

// SyncRunRepository handles database operations for connector sync runs
type SyncRunRepository struct {
	db *gorm.DB
}

// Ensure SyncRunRepository implements the interface
var _ SyncRunRepositoryInterface = (*SyncRunRepository)(nil)

// NewSyncRunRepository creates a new sync run repository
func NewSyncRunRepository(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// CreateRun inserts a new RUNNING sync run
func (r *SyncRunRepository) CreateRun(ctx context.Context, run *models.ConnectorSyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// FinalizeRun marks a run SUCCESS or FAILED and stamps its end time. Runs are
// append-only audit records: finalize is the only mutation after creation.
func (r *SyncRunRepository) FinalizeRun(ctx context.Context, id uuid.UUID, status models.SyncRunStatus, recordsUpserted int, errorMessage string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ConnectorSyncRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"records_upserted": recordsUpserted,
			"error_message":    errorMessage,
			"ended_at":         &now,
		}).Error
}

// ListRunsByConnector retrieves recent runs for a connector, newest first
func (r *SyncRunRepository) ListRunsByConnector(ctx context.Context, connectorID uuid.UUID, limit int) ([]models.ConnectorSyncRun, error) {
	var runs []models.ConnectorSyncRun
	err := r.db.WithContext(ctx).
		Where("connector_id = ?", connectorID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
