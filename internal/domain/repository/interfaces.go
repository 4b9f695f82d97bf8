package repository

import (
	"context"

	"AutoOptimiser/internal/domain/models"
)

// Terminal runs the external strategy tester once per call.
type Terminal interface {
	// Run launches the tester with configPath and blocks until it exits.
	Run(ctx context.Context, configPath string) error
	IsRunning() bool
}

// ConfigStore produces per-launch copies of the base tester configuration.
type ConfigStore interface {
	Duplicate(path string) (ConfigEditor, error)
}

// ConfigEditor edits the [Tester] section of one configuration copy.
type ConfigEditor interface {
	SetField(name models.ConfigField, value string) error
	DeleteField(name models.ConfigField) error
	Save() error
	Path() string
}

// ParameterWriter persists strategy inputs where the tester reads them.
type ParameterWriter interface {
	Write(path string, params []models.StrategyParam) error
}

// ReportSource reads the result file written by one tester launch.
// Header fields set in expected are checked; the actual header is returned.
type ReportSource interface {
	ReadResults(path string, expected models.AccountSettings) ([]models.ResultRecord, models.AccountSettings, error)
	Remove(path string) error
}

// ResultArchive stores finished result records for later analysis.
type ResultArchive interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, sessionID string, category models.Category, records []models.ResultRecord) error
	Health(ctx context.Context) error
	Close() error
}

// SessionStore keeps snapshots of finished sessions.
type SessionStore interface {
	Save(ctx context.Context, snap *models.SessionSnapshot) error
	Get(ctx context.Context, id string) (*models.SessionSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// EventSink receives engine events synchronously from the run goroutine.
type EventSink interface {
	Emit(ev models.RunEvent)
}

// EventPublisher forwards run events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.RunEvent) error
	Close() error
}

type Metrics interface {
	RecordLaunch(phase string)
	RecordRecords(category string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPhase(phase string)
}
