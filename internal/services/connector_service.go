package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
)

const (
	defaultSyncIntervalMinutes = 15
	minSyncIntervalMinutes     = 5
	maxSyncIntervalMinutes     = 240
	maxRunsPerListing          = 30
)

// CreateConnectorRequest is the payload for registering a connector.
type CreateConnectorRequest struct {
	Name                string                  `json:"name" binding:"required"`
	SoftwareType        string                  `json:"softwareType" binding:"required"`
	SyncIntervalMinutes int                     `json:"syncIntervalMinutes"`
	Config              *models.ConnectorConfig `json:"config"`
}

// ConnectorBlueprint is a ready-made connector template for a known pharmacy
// software setup. Blueprints are static; retailers copy one and fill in
// their own source credentials.
type ConnectorBlueprint struct {
	Key          string                 `json:"key"`
	Name         string                 `json:"name"`
	SoftwareType string                 `json:"softwareType"`
	Config       models.ConnectorConfig `json:"config"`
	Notes        string                 `json:"notes"`
}

// ConnectorService manages the connector registry
type ConnectorService struct {
	connectorRepo repository.ConnectorRepositoryInterface
	runRepo       repository.SyncRunRepositoryInterface
	logger        *logrus.Logger
}

// NewConnectorService creates a new connector service
func NewConnectorService(connectorRepo repository.ConnectorRepositoryInterface, runRepo repository.SyncRunRepositoryInterface, logger *logrus.Logger) *ConnectorService {
	return &ConnectorService{
		connectorRepo: connectorRepo,
		runRepo:       runRepo,
		logger:        logger,
	}
}

// CreateConnector registers a connector for a retailer. The sync interval is
// clamped into the supported scheduling range and the config is stored as an
// opaque JSON document.
func (s *ConnectorService) CreateConnector(ctx context.Context, retailerID uuid.UUID, req CreateConnectorRequest) (*models.PharmacyConnector, error) {
	interval := req.SyncIntervalMinutes
	if interval == 0 {
		interval = defaultSyncIntervalMinutes
	}
	if interval < minSyncIntervalMinutes {
		interval = minSyncIntervalMinutes
	}
	if interval > maxSyncIntervalMinutes {
		interval = maxSyncIntervalMinutes
	}

	configJSON := "{}"
	if req.Config != nil {
		raw, err := json.Marshal(req.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encode connector config: %w", err)
		}
		configJSON = string(raw)
	}

	connector := &models.PharmacyConnector{
		ID:                  uuid.New(),
		RetailerID:          retailerID,
		Name:                req.Name,
		SoftwareType:        req.SoftwareType,
		Status:              models.ConnectorActive,
		SyncIntervalMinutes: interval,
		Config:              configJSON,
	}
	if err := s.connectorRepo.Create(ctx, connector); err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"connectorId": connector.ID,
		"retailerId":  retailerID,
		"software":    connector.SoftwareType,
	}).Info("Connector registered")
	return connector, nil
}

// ListConnectors returns a retailer's connectors, newest first.
func (s *ConnectorService) ListConnectors(ctx context.Context, retailerID uuid.UUID) ([]models.PharmacyConnector, error) {
	return s.connectorRepo.ListByRetailer(ctx, retailerID)
}

// GetConnectorRuns returns recent sync runs for a connector the retailer
// owns, newest first.
func (s *ConnectorService) GetConnectorRuns(ctx context.Context, retailerID, connectorID uuid.UUID, limit int) ([]models.ConnectorSyncRun, error) {
	if _, err := s.connectorRepo.GetByIDForRetailer(ctx, retailerID, connectorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConnectorNotFound
		}
		return nil, err
	}
	if limit <= 0 || limit > maxRunsPerListing {
		limit = maxRunsPerListing
	}
	return s.runRepo.ListRunsByConnector(ctx, connectorID, limit)
}

// Blueprints returns the built-in connector templates.
func (s *ConnectorService) Blueprints() []ConnectorBlueprint {
	return connectorBlueprints
}

var connectorBlueprints = []ConnectorBlueprint{
	{
		Key:          "UNIVERSAL_DIRECT_DB",
		Name:         "Universal direct database",
		SoftwareType: "GENERIC",
		Config: models.ConnectorConfig{
			Source: &models.SourceConfig{
				Type:     models.SourceTypeDirectDB,
				DBKind:   "postgres",
				Host:     "localhost",
				Port:     5432,
				Database: "pharmacy",
				Username: "readonly",
				Query:    "SELECT sku, product_name, batch_number, quantity, expiry FROM stock_items",
			},
			FieldMap: map[string]string{
				FieldSKU:         "sku",
				FieldProductName: "product_name",
				FieldBatchNumber: "batch_number",
				FieldQuantity:    "quantity",
				FieldExpiry:      "expiry",
			},
		},
		Notes: "Works against any pharmacy software exposing a readable SQL database. Adjust the query and field map to the local schema and point the password at a secret manager entry rather than embedding it.",
	},
	{
		Key:          "MARG_DIRECT_DB",
		Name:         "Marg ERP direct database",
		SoftwareType: "MARG",
		Config: models.ConnectorConfig{
			Source: &models.SourceConfig{
				Type:     models.SourceTypeDirectDB,
				DBKind:   "sqlserver",
				Host:     "localhost",
				Port:     1433,
				Database: "MargErp",
				Username: "readonly",
				Query:    "SELECT code AS sku, name AS product_name, batch AS batch_number, qty AS quantity, exp_date AS expiry FROM ItemStock",
			},
			FieldMap: map[string]string{
				FieldSKU:         "sku",
				FieldProductName: "product_name",
				FieldBatchNumber: "batch_number",
				FieldQuantity:    "quantity",
				FieldExpiry:      "expiry",
			},
		},
		Notes: "Template for on-premise Marg ERP installs. SQL Server sources are not yet pullable by the scheduler; push rows through the raw sync endpoint until the sqlserver driver lands.",
	},
}
