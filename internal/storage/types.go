package storage

import (
	"time"

	"github.com/vigilhq/vigil/internal/health"
	"github.com/vigilhq/vigil/internal/profile"
)

// AuditStorage defines the interface for persisting health check results.
// It is a superset of health.AuditSink, so a store plugs straight into
// the monitor.
type AuditStorage interface {
	// StoreProfileDefinition persists a monitor profile
	StoreProfileDefinition(p *profile.Profile) error

	// StoreReport persists one health report
	StoreReport(profileID string, report *health.Report) error

	// UpdateLatestState updates the latest state for a profile
	UpdateLatestState(profileID string, report *health.Report) error

	// QueryAudit retrieves audit records with optional filtering
	QueryAudit(filter AuditFilter) ([]AuditRecord, error)

	// GetLatestState retrieves the latest state for a profile
	GetLatestState(profileID string) (*LatestState, error)

	// Close closes the storage connection
	Close() error
}

// AuditFilter defines filtering options for audit queries
type AuditFilter struct {
	ProfileID string
	Host      string
	Status    string // healthy, warning, critical, unknown
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// AuditRecord represents a single stored health report
type AuditRecord struct {
	ID            int64
	ProfileID     string
	Host          string
	Status        string
	IssueCount    int
	AlertCount    int
	RecoveryCount int
	Partial       bool
	Report        *health.Report
	Timestamp     time.Time
	CreatedAt     time.Time
}

// LatestState represents the most recent health state for a profile
type LatestState struct {
	ProfileID     string
	Host          string
	Status        string
	IssueCount    int
	AlertCount    int
	RecoveryCount int
	Report        *health.Report
	Timestamp     time.Time
	UpdatedAt     time.Time
}
