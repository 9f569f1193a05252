package services

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
)

func newConnectorService(connectorRepo *MockConnectorRepository, runRepo *MockSyncRunRepository) *ConnectorService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewConnectorService(connectorRepo, runRepo, logger)
}

func TestCreateConnector(t *testing.T) {
	retailerID := uuid.New()

	tests := []struct {
		name         string
		interval     int
		wantInterval int
	}{
		{"defaults to fifteen minutes", 0, 15},
		{"clamps below minimum", 2, 5},
		{"clamps above maximum", 1000, 240},
		{"keeps in-range value", 60, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectorRepo := new(MockConnectorRepository)
			service := newConnectorService(connectorRepo, new(MockSyncRunRepository))

			connectorRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *models.PharmacyConnector) bool {
				return c.RetailerID == retailerID &&
					c.Status == models.ConnectorActive &&
					c.SyncIntervalMinutes == tt.wantInterval
			})).Return(nil)

			connector, err := service.CreateConnector(context.Background(), retailerID, CreateConnectorRequest{
				Name:                "Shop software",
				SoftwareType:        "GENERIC",
				SyncIntervalMinutes: tt.interval,
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.wantInterval, connector.SyncIntervalMinutes)
			connectorRepo.AssertExpectations(t)
		})
	}

	t.Run("stores the config as JSON", func(t *testing.T) {
		connectorRepo := new(MockConnectorRepository)
		service := newConnectorService(connectorRepo, new(MockSyncRunRepository))

		connectorRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		connector, err := service.CreateConnector(context.Background(), retailerID, CreateConnectorRequest{
			Name:         "Shop software",
			SoftwareType: "MARG",
			Config: &models.ConnectorConfig{
				Source:   &models.SourceConfig{Type: models.SourceTypeDirectDB, DBKind: "postgres"},
				FieldMap: map[string]string{FieldProductName: "item_name"},
			},
		})
		assert.NoError(t, err)

		parsed := models.ParseConnectorConfig(connector.Config)
		assert.True(t, parsed.IsPullCapable())
		assert.Equal(t, "item_name", parsed.FieldMap[FieldProductName])
	})

	t.Run("missing config stores an empty object", func(t *testing.T) {
		connectorRepo := new(MockConnectorRepository)
		service := newConnectorService(connectorRepo, new(MockSyncRunRepository))

		connectorRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		connector, err := service.CreateConnector(context.Background(), retailerID, CreateConnectorRequest{
			Name:         "Shop software",
			SoftwareType: "GENERIC",
		})
		assert.NoError(t, err)
		assert.Equal(t, "{}", connector.Config)
	})
}

func TestGetConnectorRuns(t *testing.T) {
	retailerID := uuid.New()
	connectorID := uuid.New()

	t.Run("unknown connector", func(t *testing.T) {
		connectorRepo := new(MockConnectorRepository)
		service := newConnectorService(connectorRepo, new(MockSyncRunRepository))

		connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connectorID).
			Return(nil, repository.ErrNotFound)

		runs, err := service.GetConnectorRuns(context.Background(), retailerID, connectorID, 10)
		assert.Nil(t, runs)
		assert.ErrorIs(t, err, ErrConnectorNotFound)
	})

	t.Run("caps the listing limit", func(t *testing.T) {
		connectorRepo := new(MockConnectorRepository)
		runRepo := new(MockSyncRunRepository)
		service := newConnectorService(connectorRepo, runRepo)

		connector := testConnector(retailerID, "{}")
		connectorRepo.On("GetByIDForRetailer", mock.Anything, retailerID, connectorID).
			Return(connector, nil)
		runRepo.On("ListRunsByConnector", mock.Anything, connectorID, 30).
			Return([]models.ConnectorSyncRun{}, nil)

		_, err := service.GetConnectorRuns(context.Background(), retailerID, connectorID, 500)
		assert.NoError(t, err)
		runRepo.AssertExpectations(t)
	})
}

func TestBlueprints(t *testing.T) {
	service := newConnectorService(new(MockConnectorRepository), new(MockSyncRunRepository))

	blueprints := service.Blueprints()
	assert.NotEmpty(t, blueprints)

	keys := make(map[string]bool)
	for _, bp := range blueprints {
		keys[bp.Key] = true
		assert.NotNil(t, bp.Config.Source)
		assert.NotEmpty(t, bp.Config.FieldMap[FieldProductName])
	}
	assert.True(t, keys["UNIVERSAL_DIRECT_DB"])
	assert.True(t, keys["MARG_DIRECT_DB"])
}
