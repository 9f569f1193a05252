package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// SyncCompletedEvent is emitted after every successful connector sync so
// downstream consumers (analytics, notifications) can react without polling.
type SyncCompletedEvent struct {
	Type            string    `json:"type"`
	ConnectorID     string    `json:"connectorId"`
	RetailerID      string    `json:"retailerId"`
	SyncRunID       string    `json:"syncRunId"`
	RecordsUpserted int       `json:"recordsUpserted"`
	AlertsGenerated int       `json:"alertsGenerated"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher writes sync events to Kafka. A nil Publisher is valid and drops
// every event, so callers never need to branch on whether Kafka is configured.
type Publisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewPublisher creates a publisher for the given brokers, or nil when no
// brokers are configured.
func NewPublisher(brokers []string, topic string, logger *logrus.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: time.Second,
		},
		logger: logger,
	}
}

// PublishSyncCompleted emits a sync completion event. Publish failures are
// logged and swallowed: eventing is best-effort and must never fail a sync.
func (p *Publisher) PublishSyncCompleted(ctx context.Context, event SyncCompletedEvent) {
	if p == nil {
		return
	}
	event.Type = "stock.sync.completed"
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal sync event")
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ConnectorID),
		Value: payload,
	}); err != nil {
		p.logger.WithError(err).WithField("connectorId", event.ConnectorID).
			Error("Failed to publish sync event")
	}
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
