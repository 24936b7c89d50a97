package api

import (
	"time"

	"github.com/vigilhq/vigil/internal/health"
)

// AlertDecisionRequest represents an alert arbitration request
type AlertDecisionRequest struct {
	Profile   string             `json:"profile,omitempty"`
	AlertType string             `json:"alertType"`
	Context   map[string]float64 `json:"context,omitempty"`
}

// ProfileListResponse represents a list of monitor profiles
type ProfileListResponse struct {
	Profiles []ProfileSummary `json:"profiles"`
}

// ProfileSummary contains summary information about a profile
type ProfileSummary struct {
	ID            string `json:"id"`
	Host          string `json:"host"`
	Description   string `json:"description,omitempty"`
	CheckInterval string `json:"checkInterval"`
}

// StateResponse represents the latest persisted state for a profile
type StateResponse struct {
	ProfileID string         `json:"profileId"`
	Host      string         `json:"host"`
	Status    string         `json:"status"`
	Report    *health.Report `json:"report"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AuditRecordResponse represents a stored report in audit responses
type AuditRecordResponse struct {
	ID            int64          `json:"id"`
	ProfileID     string         `json:"profileId"`
	Host          string         `json:"host"`
	Status        string         `json:"status"`
	IssueCount    int            `json:"issueCount"`
	AlertCount    int            `json:"alertCount"`
	RecoveryCount int            `json:"recoveryCount"`
	Partial       bool           `json:"partial,omitempty"`
	Report        *health.Report `json:"report,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// AuditResponse represents an audit query response
type AuditResponse struct {
	Records []AuditRecordResponse `json:"records"`
	Total   int                   `json:"total"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Ready          bool     `json:"ready"`
	ProfilesLoaded int      `json:"profilesLoaded"`
	Reasons        []string `json:"reasons,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
