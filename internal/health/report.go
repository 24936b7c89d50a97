package health

import (
	"time"

	"github.com/vigilhq/vigil/internal/alert"
	"github.com/vigilhq/vigil/internal/detect"
	"github.com/vigilhq/vigil/internal/metrics"
	"github.com/vigilhq/vigil/internal/recovery"
	"github.com/vigilhq/vigil/internal/trend"
)

// Status is the overall health classification for one cycle.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	// StatusUnknown means the metrics pull failed; the report is built
	// from substituted zeros and should not be trusted.
	StatusUnknown Status = "unknown"
)

// Issue is one threshold breach observed this cycle.
type Issue struct {
	Metric    string  `json:"metric"`
	Severity  string  `json:"severity"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// Report is the aggregate outcome of one health check cycle.
type Report struct {
	Status          Status                    `json:"status"`
	Issues          []Issue                   `json:"issues"`
	Metrics         metrics.Snapshot          `json:"metrics"`
	Anomalies       []detect.Result           `json:"anomalies"`
	Trends          map[string]trend.Estimate `json:"trends"`
	Predictions     []trend.PredictedIssue    `json:"predictions"`
	Alerts          []alert.Decision          `json:"alerts"`
	Recoveries      []recovery.Outcome        `json:"recoveries"`
	Recommendations []string                  `json:"recommendations"`
	Partial         bool                      `json:"partial,omitempty"`
	GeneratedAt     time.Time                 `json:"generatedAt"`
}

// AuditSink receives finished reports for persistence. The orchestrator
// never depends on a concrete store; internal/storage provides one.
type AuditSink interface {
	StoreReport(profileID string, report *Report) error
	UpdateLatestState(profileID string, report *Report) error
}
