package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConnectorStatus represents the lifecycle status of a pharmacy connector
type ConnectorStatus string

const (
	ConnectorActive ConnectorStatus = "ACTIVE"
	ConnectorPaused ConnectorStatus = "PAUSED"
	ConnectorError  ConnectorStatus = "ERROR"
)

// SourceTypeDirectDB marks a connector source the service can pull from on a
// schedule. Push-only connectors carry any other type and are synced via the
// raw-rows endpoint by the pharmacy's own software.
const SourceTypeDirectDB = "direct_db"

// SourceConfig holds the reader parameters for a pull-capable connector source.
type SourceConfig struct {
	Type     string `json:"type,omitempty"`
	DBKind   string `json:"dbKind,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// PasswordSecret optionally names a Secret Manager resource holding the
	// password; takes precedence over Password when both are set.
	PasswordSecret string `json:"passwordSecret,omitempty"`
	Query          string `json:"query,omitempty"`
}

// ConnectorConfig is the typed view of a connector's JSON config blob.
type ConnectorConfig struct {
	Source   *SourceConfig     `json:"source,omitempty"`
	FieldMap map[string]string `json:"fieldMap,omitempty"`
}

// ParseConnectorConfig deserializes the stored config text. The blob is
// external input persisted as-is, so malformed JSON degrades to an empty
// config instead of an error.
func ParseConnectorConfig(raw string) ConnectorConfig {
	if raw == "" {
		return ConnectorConfig{}
	}
	var cfg ConnectorConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return ConnectorConfig{}
	}
	return cfg
}

// IsPullCapable reports whether the scheduler may pull rows from this source.
func (c ConnectorConfig) IsPullCapable() bool {
	return c.Source != nil && c.Source.Type == SourceTypeDirectDB
}

// PharmacyConnector represents one configured external pharmacy-management
// system for a retailer. The config column stores the source parameters and
// field map as serialized JSON text.
type PharmacyConnector struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RetailerID uuid.UUID `gorm:"type:uuid;not null;index:idx_pharmacy_connectors_retailer" json:"retailerId"`

	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	SoftwareType string          `gorm:"type:varchar(100);not null" json:"softwareType"`
	Status       ConnectorStatus `gorm:"type:varchar(50);not null;default:'ACTIVE';index:idx_pharmacy_connectors_status" json:"status"`

	SyncIntervalMinutes int    `gorm:"not null;default:15" json:"syncIntervalMinutes"`
	Config              string `gorm:"type:text" json:"config"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for PharmacyConnector
func (PharmacyConnector) TableName() string {
	return "pharmacy_connectors"
}

// SyncRunStatus represents the status of a connector sync run
type SyncRunStatus string

const (
	SyncRunRunning SyncRunStatus = "RUNNING"
	SyncRunSuccess SyncRunStatus = "SUCCESS"
	SyncRunFailed  SyncRunStatus = "FAILED"
)

// ConnectorSyncRun is the append-only audit record of one sync attempt.
// A run is created RUNNING and finalized exactly once.
type ConnectorSyncRun struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConnectorID uuid.UUID `gorm:"type:uuid;not null;index:idx_connector_sync_runs_connector" json:"connectorId"`

	Status          SyncRunStatus `gorm:"type:varchar(50);not null;default:'RUNNING'" json:"status"`
	RecordsReceived int           `gorm:"default:0" json:"recordsReceived"`
	RecordsUpserted int           `gorm:"default:0" json:"recordsUpserted"`
	ErrorMessage    string        `gorm:"type:text" json:"errorMessage,omitempty"`

	StartedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// TableName specifies the table name for ConnectorSyncRun
func (ConnectorSyncRun) TableName() string {
	return "connector_sync_runs"
}
