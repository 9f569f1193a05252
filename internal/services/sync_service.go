package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pharmacy-intelligence-service/internal/events"
	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
	"pharmacy-intelligence-service/internal/sources"
)

// ErrConnectorNotFound is returned when a connector does not exist or does
// not belong to the requesting retailer.
var ErrConnectorNotFound = errors.New("connector not found")

// SyncResult summarizes one completed sync attempt
type SyncResult struct {
	SyncRunID       uuid.UUID `json:"syncRunId"`
	RecordsReceived int       `json:"recordsReceived"`
	RecordsUpserted int       `json:"recordsUpserted"`
	AlertsGenerated int       `json:"alertsGenerated"`
}

// AutoSyncResult is a SyncResult that may instead report the connector was
// skipped because its source cannot be pulled from.
type AutoSyncResult struct {
	Skipped bool        `json:"skipped,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Result  *SyncResult `json:"result,omitempty"`
}

// SyncService orchestrates connector syncs: normalize rows, upsert the stock
// mirror, rebuild alerts and matches, and record the run outcome.
type SyncService struct {
	connectorRepo repository.ConnectorRepositoryInterface
	runRepo       repository.SyncRunRepositoryInterface
	stockRepo     repository.StockRepositoryInterface
	alertRepo     repository.AlertRepositoryInterface
	matchRepo     repository.MatchRepositoryInterface
	catalogRepo   repository.CatalogRepositoryInterface
	reader        sources.Reader
	publisher     *events.Publisher
	logger        *logrus.Logger
	sourceTimeout time.Duration
}

// NewSyncService creates a new sync service
func NewSyncService(
	connectorRepo repository.ConnectorRepositoryInterface,
	runRepo repository.SyncRunRepositoryInterface,
	stockRepo repository.StockRepositoryInterface,
	alertRepo repository.AlertRepositoryInterface,
	matchRepo repository.MatchRepositoryInterface,
	catalogRepo repository.CatalogRepositoryInterface,
	reader sources.Reader,
	publisher *events.Publisher,
	logger *logrus.Logger,
	sourceTimeout time.Duration,
) *SyncService {
	return &SyncService{
		connectorRepo: connectorRepo,
		runRepo:       runRepo,
		stockRepo:     stockRepo,
		alertRepo:     alertRepo,
		matchRepo:     matchRepo,
		catalogRepo:   catalogRepo,
		reader:        reader,
		publisher:     publisher,
		logger:        logger,
		sourceTimeout: sourceTimeout,
	}
}

// SyncConnector runs one sync attempt for a connector with pre-normalized
// records. A RUNNING run is recorded first and finalized exactly once; on
// failure the connector's lastSyncedAt stays untouched so the scheduler
// retries on the next due interval.
func (s *SyncService) SyncConnector(ctx context.Context, retailerID, connectorID uuid.UUID, records []models.SyncRecord) (*SyncResult, error) {
	connector, err := s.connectorRepo.GetByIDForRetailer(ctx, retailerID, connectorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConnectorNotFound
	}
	if err != nil {
		return nil, err
	}

	run := &models.ConnectorSyncRun{
		ID:              uuid.New(),
		ConnectorID:     connector.ID,
		Status:          models.SyncRunRunning,
		RecordsReceived: len(records),
		StartedAt:       time.Now(),
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create sync run: %w", err)
	}

	upserted := 0
	for _, record := range records {
		if err := s.upsertRecord(ctx, connector, record); err != nil {
			return nil, s.failRun(ctx, run.ID, upserted, err)
		}
		upserted++
	}

	// Unconditional, even for an empty batch: alerts and matches must
	// reflect the currently-known mirror, not just this sync's delta.
	alertsGenerated, err := s.rebuildAlertsAndMatches(ctx, retailerID)
	if err != nil {
		return nil, s.failRun(ctx, run.ID, upserted, err)
	}

	if err := s.runRepo.FinalizeRun(ctx, run.ID, models.SyncRunSuccess, upserted, ""); err != nil {
		return nil, fmt.Errorf("failed to finalize sync run: %w", err)
	}
	if err := s.connectorRepo.UpdateLastSyncedAt(ctx, connector.ID, time.Now()); err != nil {
		return nil, err
	}

	s.publisher.PublishSyncCompleted(ctx, events.SyncCompletedEvent{
		ConnectorID:     connector.ID.String(),
		RetailerID:      retailerID.String(),
		SyncRunID:       run.ID.String(),
		RecordsUpserted: upserted,
		AlertsGenerated: alertsGenerated,
	})

	return &SyncResult{
		SyncRunID:       run.ID,
		RecordsReceived: len(records),
		RecordsUpserted: upserted,
		AlertsGenerated: alertsGenerated,
	}, nil
}

// SyncRawConnector normalizes raw rows through the connector's stored field
// map, then syncs the result.
func (s *SyncService) SyncRawConnector(ctx context.Context, retailerID, connectorID uuid.UUID, rows []models.RawRow) (*SyncResult, error) {
	connector, err := s.connectorRepo.GetByIDForRetailer(ctx, retailerID, connectorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConnectorNotFound
	}
	if err != nil {
		return nil, err
	}

	config := models.ParseConnectorConfig(connector.Config)
	records := NormalizeRawRows(rows, config.FieldMap)
	return s.SyncConnector(ctx, retailerID, connectorID, records)
}

// RunConnectorAutoSync pulls rows from a connector's configured source and
// syncs them. Connectors without a pull-capable source are skipped, not
// failed. Called by the scheduler without retailer scoping.
func (s *SyncService) RunConnectorAutoSync(ctx context.Context, connectorID uuid.UUID) (*AutoSyncResult, error) {
	connector, err := s.connectorRepo.GetByID(ctx, connectorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConnectorNotFound
	}
	if err != nil {
		return nil, err
	}

	config := models.ParseConnectorConfig(connector.Config)
	if !config.IsPullCapable() {
		return &AutoSyncResult{
			Skipped: true,
			Reason:  fmt.Sprintf("connector source.type is not %s", models.SourceTypeDirectDB),
		}, nil
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	rows, err := s.reader.Pull(pullCtx, config.Source)
	if err != nil {
		s.recordFailedPull(ctx, connector.ID, err)
		return nil, fmt.Errorf("source read failed: %w", err)
	}

	records := NormalizeRawRows(rows, config.FieldMap)
	s.logger.WithFields(logrus.Fields{
		"connectorId": connector.ID,
		"connector":   connector.Name,
		"rows":        len(rows),
		"normalized":  len(records),
	}).Info("Auto-sync pulled rows")

	result, err := s.SyncConnector(ctx, connector.RetailerID, connector.ID, records)
	if err != nil {
		return nil, err
	}
	return &AutoSyncResult{Result: result}, nil
}

// upsertRecord resolves an optional catalog product for one record and
// upserts the mirror row keyed by (retailer, product name, batch number).
func (s *SyncService) upsertRecord(ctx context.Context, connector *models.PharmacyConnector, record models.SyncRecord) error {
	product, err := s.resolveProduct(ctx, record)
	if err != nil {
		return err
	}

	var productID *uuid.UUID
	if product != nil {
		productID = &product.ID
	}

	stock := &models.RetailerStock{
		ID:                  uuid.New(),
		RetailerID:          connector.RetailerID,
		ConnectorID:         &connector.ID,
		ProductID:           productID,
		ExternalSKU:         trimPtr(record.SKU),
		ProductName:         strings.TrimSpace(record.ProductName),
		GenericName:         trimPtr(record.GenericName),
		BatchNumber:         trimOrEmpty(record.BatchNumber),
		Quantity:            record.Quantity,
		Expiry:              ParseExpiry(record.Expiry),
		DistributorName:     trimPtr(record.DistributorName),
		DistributorContact:  trimPtr(record.DistributorContact),
		DistributorLocation: trimPtr(record.DistributorLocation),
		LastSeenAt:          time.Now(),
	}
	return s.stockRepo.Upsert(ctx, stock)
}

// resolveProduct matches a record against the catalog: exact SKU-as-code
// first, then exact product or generic name. No match is not an error.
func (s *SyncService) resolveProduct(ctx context.Context, record models.SyncRecord) (*models.ProductMaster, error) {
	if sku := trimPtr(record.SKU); sku != nil {
		product, err := s.catalogRepo.FindProductBySKU(ctx, *sku)
		if err != nil {
			return nil, err
		}
		if product != nil {
			return product, nil
		}
	}
	return s.catalogRepo.FindProductByName(ctx, strings.TrimSpace(record.ProductName), trimPtr(record.GenericName))
}

// rebuildAlertsAndMatches recomputes the full alert and match sets for a
// retailer from the current mirror, replacing whatever a prior run left.
func (s *SyncService) rebuildAlertsAndMatches(ctx context.Context, retailerID uuid.UUID) (int, error) {
	stocks, err := s.stockRepo.ListForRebuild(ctx, retailerID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	alerts := BuildAlerts(stocks, now)

	var matches []models.StockMatch
	for _, stock := range stocks {
		if !NeedsAttention(stock, now) {
			continue
		}

		candidates, err := s.catalogRepo.FindCandidates(ctx, stock.ProductID, stock.ProductName, matchFetchLimit)
		if err != nil {
			return 0, err
		}
		if len(candidates) == 0 {
			continue
		}

		district := ""
		if stock.Retailer != nil {
			district = stock.Retailer.District
		}
		ranked := RankCandidates(stock.Quantity, stock.Expiry, district, candidates, now)
		for i, candidate := range ranked {
			if i >= matchKeepLimit {
				break
			}
			matches = append(matches, models.StockMatch{
				StockID:                stock.ID,
				DistributorInventoryID: candidate.Inventory.ID,
				Score:                  candidate.Score,
				Reason:                 candidate.Reason,
			})
		}
	}

	if err := s.matchRepo.ReplaceForRetailer(ctx, retailerID, matches); err != nil {
		return 0, err
	}
	if err := s.alertRepo.ReplaceOpenAlerts(ctx, retailerID, alerts); err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// failRun finalizes a run as FAILED and passes the original error through.
// Finalize failures are logged, not returned: the pipeline error is the one
// the caller needs.
func (s *SyncService) failRun(ctx context.Context, runID uuid.UUID, upserted int, cause error) error {
	if err := s.runRepo.FinalizeRun(ctx, runID, models.SyncRunFailed, upserted, cause.Error()); err != nil {
		s.logger.WithError(err).WithField("syncRunId", runID).
			Error("Failed to mark sync run as failed")
	}
	return cause
}

// recordFailedPull writes an already-failed run so source read failures show
// up in the connector's run history like any other failed sync.
func (s *SyncService) recordFailedPull(ctx context.Context, connectorID uuid.UUID, cause error) {
	run := &models.ConnectorSyncRun{
		ID:          uuid.New(),
		ConnectorID: connectorID,
		Status:      models.SyncRunRunning,
		StartedAt:   time.Now(),
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		s.logger.WithError(err).WithField("connectorId", connectorID).
			Error("Failed to record failed pull")
		return
	}
	_ = s.failRun(ctx, run.ID, 0, cause)
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func trimOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
