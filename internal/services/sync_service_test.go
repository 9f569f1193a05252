package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
)

type syncFixture struct {
	connectorRepo *MockConnectorRepository
	runRepo       *MockSyncRunRepository
	stockRepo     *MockStockRepository
	alertRepo     *MockAlertRepository
	matchRepo     *MockMatchRepository
	catalogRepo   *MockCatalogRepository
	reader        *MockSourceReader
	service       *SyncService
}

func newSyncFixture() *syncFixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &syncFixture{
		connectorRepo: new(MockConnectorRepository),
		runRepo:       new(MockSyncRunRepository),
		stockRepo:     new(MockStockRepository),
		alertRepo:     new(MockAlertRepository),
		matchRepo:     new(MockMatchRepository),
		catalogRepo:   new(MockCatalogRepository),
		reader:        new(MockSourceReader),
	}
	f.service = NewSyncService(
		f.connectorRepo, f.runRepo, f.stockRepo, f.alertRepo, f.matchRepo,
		f.catalogRepo, f.reader, nil, logger, 30*time.Second,
	)
	return f
}

func testConnector(retailerID uuid.UUID, config string) *models.PharmacyConnector {
	return &models.PharmacyConnector{
		ID:                  uuid.New(),
		RetailerID:          retailerID,
		Name:                "Shop software",
		SoftwareType:        "GENERIC",
		Status:              models.ConnectorActive,
		SyncIntervalMinutes: 15,
		Config:              config,
	}
}

func strPtr(s string) *string { return &s }

func TestSyncConnector_UnknownConnector(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	connectorID := uuid.New()

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connectorID).
		Return(nil, repository.ErrNotFound)

	result, err := f.service.SyncConnector(context.Background(), retailerID, connectorID, nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrConnectorNotFound)

	// No run, no writes of any kind.
	f.runRepo.AssertNotCalled(t, "CreateRun", mock.Anything, mock.Anything)
	f.stockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSyncConnector_SuccessPath(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	connector := testConnector(retailerID, "{}")
	product := &models.ProductMaster{ID: uuid.New(), Name: "Paracetamol 500"}

	records := []models.SyncRecord{
		{SKU: strPtr("P500"), ProductName: " Paracetamol 500 ", BatchNumber: strPtr("B1"), Quantity: 3},
	}

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connector.ID).
		Return(connector, nil)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	f.catalogRepo.On("FindProductBySKU", mock.Anything, "P500").Return(product, nil)
	f.stockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(stock *models.RetailerStock) bool {
		return stock.RetailerID == retailerID &&
			stock.ProductName == "Paracetamol 500" &&
			stock.BatchNumber == "B1" &&
			stock.Quantity == 3 &&
			stock.ProductID != nil && *stock.ProductID == product.ID &&
			stock.ConnectorID != nil && *stock.ConnectorID == connector.ID
	})).Return(nil)

	mirrored := []models.RetailerStock{
		{ID: uuid.New(), RetailerID: retailerID, ProductName: "Paracetamol 500", Quantity: 3,
			Retailer: &models.Retailer{ID: retailerID, District: "Pune"}},
	}
	f.stockRepo.On("ListForRebuild", mock.Anything, retailerID).Return(mirrored, nil)
	f.catalogRepo.On("FindCandidates", mock.Anything, mock.Anything, "Paracetamol 500", 40).
		Return([]models.DistributorInventory{}, nil)
	f.matchRepo.On("ReplaceForRetailer", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.alertRepo.On("ReplaceOpenAlerts", mock.Anything, retailerID, mock.MatchedBy(func(alerts []models.StockAlert) bool {
		return len(alerts) == 1 && alerts[0].Type == models.AlertLowStock
	})).Return(nil)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunSuccess, 1, "").Return(nil)
	f.connectorRepo.On("UpdateLastSyncedAt", mock.Anything, connector.ID, mock.Anything).Return(nil)

	result, err := f.service.SyncConnector(context.Background(), retailerID, connector.ID, records)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.RecordsReceived)
	assert.Equal(t, 1, result.RecordsUpserted)
	assert.Equal(t, 1, result.AlertsGenerated)

	f.runRepo.AssertExpectations(t)
	f.stockRepo.AssertExpectations(t)
	f.alertRepo.AssertExpectations(t)
	f.matchRepo.AssertExpectations(t)
	f.connectorRepo.AssertExpectations(t)
}

func TestSyncConnector_ProducesMatchesForAtRiskRows(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	connector := testConnector(retailerID, "{}")
	productID := uuid.New()

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connector.ID).
		Return(connector, nil)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)

	stockID := uuid.New()
	mirrored := []models.RetailerStock{
		{ID: stockID, RetailerID: retailerID, ProductID: &productID, ProductName: "Insulin", Quantity: 2,
			Retailer: &models.Retailer{ID: retailerID, District: "Pune"}},
	}
	f.stockRepo.On("ListForRebuild", mock.Anything, retailerID).Return(mirrored, nil)

	// Seven candidates; only the top five may persist.
	candidates := make([]models.DistributorInventory, 7)
	for i := range candidates {
		candidates[i] = models.DistributorInventory{
			ID:     uuid.New(),
			PTR:    100 + float64(i),
			Stock:  50,
			Expiry: time.Now().Add(365 * 24 * time.Hour),
			Distributor: &models.Distributor{
				ID:       uuid.New(),
				District: "Pune",
			},
		}
	}
	f.catalogRepo.On("FindCandidates", mock.Anything, &productID, "Insulin", 40).
		Return(candidates, nil)

	f.matchRepo.On("ReplaceForRetailer", mock.Anything, retailerID, mock.MatchedBy(func(matches []models.StockMatch) bool {
		if len(matches) != 5 {
			return false
		}
		for _, m := range matches {
			if m.StockID != stockID || m.Score <= 0 || m.Reason == "" {
				return false
			}
		}
		return true
	})).Return(nil)
	f.alertRepo.On("ReplaceOpenAlerts", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunSuccess, 0, "").Return(nil)
	f.connectorRepo.On("UpdateLastSyncedAt", mock.Anything, connector.ID, mock.Anything).Return(nil)

	_, err := f.service.SyncConnector(context.Background(), retailerID, connector.ID, nil)
	assert.NoError(t, err)
	f.matchRepo.AssertExpectations(t)
}

func TestSyncConnector_FailureMarksRunFailed(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	connector := testConnector(retailerID, "{}")
	boom := errors.New("upsert exploded")

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connector.ID).
		Return(connector, nil)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	f.catalogRepo.On("FindProductBySKU", mock.Anything, mock.Anything).Return(nil, nil)
	f.catalogRepo.On("FindProductByName", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.stockRepo.On("Upsert", mock.Anything, mock.Anything).Return(boom)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunFailed, 0, "upsert exploded").Return(nil)

	records := []models.SyncRecord{{ProductName: "Cetirizine", Quantity: 5}}
	result, err := f.service.SyncConnector(context.Background(), retailerID, connector.ID, records)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)

	f.runRepo.AssertExpectations(t)
	// A failed sync must not advance the sync cursor.
	f.connectorRepo.AssertNotCalled(t, "UpdateLastSyncedAt", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncConnector_EmptyBatchStillRebuilds(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	connector := testConnector(retailerID, "{}")

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connector.ID).
		Return(connector, nil)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	f.stockRepo.On("ListForRebuild", mock.Anything, retailerID).Return([]models.RetailerStock{}, nil)
	f.matchRepo.On("ReplaceForRetailer", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.alertRepo.On("ReplaceOpenAlerts", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunSuccess, 0, "").Return(nil)
	f.connectorRepo.On("UpdateLastSyncedAt", mock.Anything, connector.ID, mock.Anything).Return(nil)

	result, err := f.service.SyncConnector(context.Background(), retailerID, connector.ID, []models.SyncRecord{})
	assert.NoError(t, err)
	assert.Equal(t, 0, result.RecordsUpserted)

	f.matchRepo.AssertExpectations(t)
	f.alertRepo.AssertExpectations(t)
}

func TestSyncRawConnector_NormalizesThroughFieldMap(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()

	config, _ := json.Marshal(models.ConnectorConfig{
		FieldMap: map[string]string{
			FieldProductName: "item_name",
			FieldQuantity:    "qty",
		},
	})
	connector := testConnector(retailerID, string(config))

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connector.ID).
		Return(connector, nil)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	f.catalogRepo.On("FindProductByName", mock.Anything, "Dolo 650", mock.Anything).Return(nil, nil)
	f.stockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(stock *models.RetailerStock) bool {
		return stock.ProductName == "Dolo 650" && stock.Quantity == 12 && stock.ProductID == nil
	})).Return(nil)
	f.stockRepo.On("ListForRebuild", mock.Anything, retailerID).Return([]models.RetailerStock{}, nil)
	f.matchRepo.On("ReplaceForRetailer", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.alertRepo.On("ReplaceOpenAlerts", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunSuccess, 1, "").Return(nil)
	f.connectorRepo.On("UpdateLastSyncedAt", mock.Anything, connector.ID, mock.Anything).Return(nil)

	rows := []models.RawRow{
		{"item_name": "Dolo 650", "qty": 12},
		{"qty": 99}, // dropped: no product name
	}
	result, err := f.service.SyncRawConnector(context.Background(), retailerID, connector.ID, rows)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.RecordsReceived)
	assert.Equal(t, 1, result.RecordsUpserted)
}

func TestRunConnectorAutoSync_SkipsPushOnlyConnector(t *testing.T) {
	f := newSyncFixture()
	connector := testConnector(uuid.New(), `{"fieldMap":{"productName":"itm"}}`)

	f.connectorRepo.On("GetByID", mock.Anything, connector.ID).Return(connector, nil)

	result, err := f.service.RunConnectorAutoSync(context.Background(), connector.ID)
	assert.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Nil(t, result.Result)
	f.reader.AssertNotCalled(t, "Pull", mock.Anything, mock.Anything)
}

func TestRunConnectorAutoSync_PullFailureRecordsFailedRun(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	config, _ := json.Marshal(models.ConnectorConfig{
		Source: &models.SourceConfig{
			Type:   models.SourceTypeDirectDB,
			DBKind: "postgres",
			Host:   "10.0.0.5",
			Query:  "SELECT * FROM stock",
		},
	})
	connector := testConnector(retailerID, string(config))
	boom := errors.New("connection refused")

	f.connectorRepo.On("GetByID", mock.Anything, connector.ID).Return(connector, nil)
	f.reader.On("Pull", mock.Anything, mock.Anything).Return(nil, boom)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunFailed, 0, "connection refused").Return(nil)

	result, err := f.service.RunConnectorAutoSync(context.Background(), connector.ID)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	f.runRepo.AssertExpectations(t)
	f.connectorRepo.AssertNotCalled(t, "UpdateLastSyncedAt", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunConnectorAutoSync_PullsAndSyncs(t *testing.T) {
	f := newSyncFixture()
	retailerID := uuid.New()
	config, _ := json.Marshal(models.ConnectorConfig{
		Source: &models.SourceConfig{
			Type:   models.SourceTypeDirectDB,
			DBKind: "postgres",
			Host:   "10.0.0.5",
			Query:  "SELECT * FROM stock",
		},
		FieldMap: map[string]string{
			FieldProductName: "item_name",
			FieldQuantity:    "qty",
		},
	})
	connector := testConnector(retailerID, string(config))

	f.connectorRepo.On("GetByID", mock.Anything, connector.ID).Return(connector, nil)
	f.reader.On("Pull", mock.Anything, mock.Anything).
		Return([]models.RawRow{{"item_name": "Azithral 500", "qty": "8"}}, nil)

	f.connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connector.ID).
		Return(connector, nil)
	f.runRepo.On("CreateRun", mock.Anything, mock.Anything).Return(nil)
	f.catalogRepo.On("FindProductByName", mock.Anything, "Azithral 500", mock.Anything).Return(nil, nil)
	f.stockRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.stockRepo.On("ListForRebuild", mock.Anything, retailerID).Return([]models.RetailerStock{}, nil)
	f.matchRepo.On("ReplaceForRetailer", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.alertRepo.On("ReplaceOpenAlerts", mock.Anything, retailerID, mock.Anything).Return(nil)
	f.runRepo.On("FinalizeRun", mock.Anything, mock.Anything, models.SyncRunSuccess, 1, "").Return(nil)
	f.connectorRepo.On("UpdateLastSyncedAt", mock.Anything, connector.ID, mock.Anything).Return(nil)

	result, err := f.service.RunConnectorAutoSync(context.Background(), connector.ID)
	assert.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Result.RecordsUpserted)
}
