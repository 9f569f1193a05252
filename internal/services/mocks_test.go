package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
)

// MockConnectorRepository is a mock implementation of ConnectorRepositoryInterface
type MockConnectorRepository struct {
	mock.Mock
}

var _ repository.ConnectorRepositoryInterface = (*MockConnectorRepository)(nil)

func (m *MockConnectorRepository) Create(ctx context.Context, connector *models.PharmacyConnector) error {
	args := m.Called(ctx, connector)
	return args.Error(0)
}

func (m *MockConnectorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PharmacyConnector, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PharmacyConnector), args.Error(1)
}

func (m *MockConnectorRepository) GetByIDForRetailer(ctx context.Context, retailerID, id uuid.UUID) (*models.PharmacyConnector, error) {
	args := m.Called(ctx, retailerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PharmacyConnector), args.Error(1)
}

func (m *MockConnectorRepository) ListByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.PharmacyConnector, error) {
	args := m.Called(ctx, retailerID)
	return args.Get(0).([]models.PharmacyConnector), args.Error(1)
}

func (m *MockConnectorRepository) ListActive(ctx context.Context, limit int) ([]models.PharmacyConnector, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.PharmacyConnector), args.Error(1)
}

func (m *MockConnectorRepository) UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	args := m.Called(ctx, id, syncedAt)
	return args.Error(0)
}

// MockSyncRunRepository is a mock implementation of SyncRunRepositoryInterface
type MockSyncRunRepository struct {
	mock.Mock
}

var _ repository.SyncRunRepositoryInterface = (*MockSyncRunRepository)(nil)

func (m *MockSyncRunRepository) CreateRun(ctx context.Context, run *models.ConnectorSyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSyncRunRepository) FinalizeRun(ctx context.Context, id uuid.UUID, status models.SyncRunStatus, recordsUpserted int, errorMessage string) error {
	args := m.Called(ctx, id, status, recordsUpserted, errorMessage)
	return args.Error(0)
}

func (m *MockSyncRunRepository) ListRunsByConnector(ctx context.Context, connectorID uuid.UUID, limit int) ([]models.ConnectorSyncRun, error) {
	args := m.Called(ctx, connectorID, limit)
	return args.Get(0).([]models.ConnectorSyncRun), args.Error(1)
}

// MockStockRepository is a mock implementation of StockRepositoryInterface
type MockStockRepository struct {
	mock.Mock
}

var _ repository.StockRepositoryInterface = (*MockStockRepository)(nil)

func (m *MockStockRepository) Upsert(ctx context.Context, stock *models.RetailerStock) error {
	args := m.Called(ctx, stock)
	return args.Error(0)
}

func (m *MockStockRepository) ListByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerStock, error) {
	args := m.Called(ctx, retailerID)
	return args.Get(0).([]models.RetailerStock), args.Error(1)
}

func (m *MockStockRepository) ListForRebuild(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerStock, error) {
	args := m.Called(ctx, retailerID)
	return args.Get(0).([]models.RetailerStock), args.Error(1)
}

// MockAlertRepository is a mock implementation of AlertRepositoryInterface
type MockAlertRepository struct {
	mock.Mock
}

var _ repository.AlertRepositoryInterface = (*MockAlertRepository)(nil)

func (m *MockAlertRepository) ReplaceOpenAlerts(ctx context.Context, retailerID uuid.UUID, alerts []models.StockAlert) error {
	args := m.Called(ctx, retailerID, alerts)
	return args.Error(0)
}

func (m *MockAlertRepository) ListOpenByRetailer(ctx context.Context, retailerID uuid.UUID) ([]models.StockAlert, error) {
	args := m.Called(ctx, retailerID)
	return args.Get(0).([]models.StockAlert), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepositoryInterface
type MockMatchRepository struct {
	mock.Mock
}

var _ repository.MatchRepositoryInterface = (*MockMatchRepository)(nil)

func (m *MockMatchRepository) ReplaceForRetailer(ctx context.Context, retailerID uuid.UUID, matches []models.StockMatch) error {
	args := m.Called(ctx, retailerID, matches)
	return args.Error(0)
}

func (m *MockMatchRepository) ListByRetailer(ctx context.Context, retailerID uuid.UUID, stockID *uuid.UUID, limit int) ([]models.StockMatch, error) {
	args := m.Called(ctx, retailerID, stockID, limit)
	return args.Get(0).([]models.StockMatch), args.Error(1)
}

func (m *MockMatchRepository) ListByDistributor(ctx context.Context, distributorID uuid.UUID, limit int) ([]models.StockMatch, error) {
	args := m.Called(ctx, distributorID, limit)
	return args.Get(0).([]models.StockMatch), args.Error(1)
}

// MockCatalogRepository is a mock implementation of CatalogRepositoryInterface
type MockCatalogRepository struct {
	mock.Mock
}

var _ repository.CatalogRepositoryInterface = (*MockCatalogRepository)(nil)

func (m *MockCatalogRepository) FindProductBySKU(ctx context.Context, code string) (*models.ProductMaster, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductMaster), args.Error(1)
}

func (m *MockCatalogRepository) FindProductByName(ctx context.Context, name string, genericName *string) (*models.ProductMaster, error) {
	args := m.Called(ctx, name, genericName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductMaster), args.Error(1)
}

func (m *MockCatalogRepository) FindCandidates(ctx context.Context, productID *uuid.UUID, productName string, limit int) ([]models.DistributorInventory, error) {
	args := m.Called(ctx, productID, productName, limit)
	return args.Get(0).([]models.DistributorInventory), args.Error(1)
}

func (m *MockCatalogRepository) GetRetailer(ctx context.Context, id uuid.UUID) (*models.Retailer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Retailer), args.Error(1)
}

// MockSourceReader is a mock implementation of sources.Reader
type MockSourceReader struct {
	mock.Mock
}

func (m *MockSourceReader) Pull(ctx context.Context, source *models.SourceConfig) ([]models.RawRow, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawRow), args.Error(1)
}
