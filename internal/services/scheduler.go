package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
)

// schedulerBatchLimit caps how many active connectors one tick examines.
const schedulerBatchLimit = 500

// AutoSyncRunner is the scheduler's view of the sync pipeline.
type AutoSyncRunner interface {
	RunConnectorAutoSync(ctx context.Context, connectorID uuid.UUID) (*AutoSyncResult, error)
}

// Scheduler fires a tick every minute, finds active connectors whose sync
// interval has elapsed, and runs each due connector in its own goroutine.
// An in-process in-flight set keeps a slow connector from being started
// twice while a previous run is still going.
type Scheduler struct {
	connectorRepo repository.ConnectorRepositoryInterface
	runner        AutoSyncRunner
	logger        *logrus.Logger
	cron          *cron.Cron

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewScheduler creates a new auto-sync scheduler
func NewScheduler(connectorRepo repository.ConnectorRepositoryInterface, runner AutoSyncRunner, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		connectorRepo: connectorRepo,
		runner:        runner,
		logger:        logger,
		cron:          cron.New(),
		inFlight:      make(map[uuid.UUID]bool),
	}
}

// Start begins the minute tick. It returns immediately; ticks run on the
// cron's own goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", func() {
		s.Tick(context.Background(), time.Now())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Auto-sync scheduler started")
	return nil
}

// Stop halts the tick and waits for in-progress cron callbacks to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Auto-sync scheduler stopped")
}

// Tick runs one scheduling pass: list active connectors, filter to the due
// pull-capable subset, and launch each one not already in flight.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	connectors, err := s.connectorRepo.ListActive(ctx, schedulerBatchLimit)
	if err != nil {
		s.logger.WithError(err).Error("Scheduler failed to list active connectors")
		return
	}

	for _, connector := range connectors {
		if !s.isDue(connector, now) {
			continue
		}
		config := models.ParseConnectorConfig(connector.Config)
		if !config.IsPullCapable() {
			continue
		}
		if !s.acquire(connector.ID) {
			s.logger.WithField("connectorId", connector.ID).
				Debug("Skipping connector, sync already in flight")
			continue
		}

		go func(id uuid.UUID, name string) {
			defer s.release(id)
			if _, err := s.runner.RunConnectorAutoSync(ctx, id); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"connectorId": id,
					"connector":   name,
				}).Error("Auto-sync failed")
			}
		}(connector.ID, connector.Name)
	}
}

// isDue reports whether the connector's interval has elapsed since its last
// successful sync. Never-synced connectors are always due.
func (s *Scheduler) isDue(connector models.PharmacyConnector, now time.Time) bool {
	if connector.LastSyncedAt == nil {
		return true
	}
	interval := connector.SyncIntervalMinutes
	if interval < 1 {
		interval = 1
	}
	return now.Sub(*connector.LastSyncedAt) >= time.Duration(interval)*time.Minute
}

// acquire marks a connector in flight; false means it already was.
func (s *Scheduler) acquire(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
