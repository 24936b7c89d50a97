package detect

import "time"

// Severity bands an anomaly by how far the value sits from its baseline.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Result is the outcome of observing a single metric value. Insufficient
// data is not an error: the detector fails open and reports "not anomalous"
// with a reason instead.
type Result struct {
	Metric    string   `json:"metric"`
	Value     float64  `json:"value"`
	ZScore    float64  `json:"zScore"`
	IsAnomaly bool     `json:"isAnomaly"`
	Severity  Severity `json:"severity,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Reasons for non-anomalous results that were never scored.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonBuildingBaseline = "building_baseline"
)

// Event records a detected anomaly. Severity is deliberately not stored:
// Summary recomputes it from ZScore so a banding change can never disagree
// with history.
type Event struct {
	Metric string    `json:"metric"`
	Value  float64   `json:"value"`
	ZScore float64   `json:"zScore"`
	At     time.Time `json:"at"`
}

// Summary aggregates recent anomaly events over a trailing window.
type Summary struct {
	Count             int              `json:"count"`
	MetricsAffected   []string         `json:"metricsAffected"`
	Recent            []Event          `json:"recent"`
	SeverityBreakdown map[Severity]int `json:"severityBreakdown"`
}

// Config tunes the detector. Zero fields fall back to defaults.
type Config struct {
	// Sensitivity is the z-score above which a value is anomalous.
	Sensitivity float64
	// WindowSize caps the per-metric baseline window (FIFO eviction).
	WindowSize int
	// MinSamples is the observation count below which no value is
	// ever flagged.
	MinSamples int
	// MaxEvents caps the retained anomaly event history.
	MaxEvents int
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		Sensitivity: 2.0,
		WindowSize:  100,
		MinSamples:  10,
		MaxEvents:   50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Sensitivity <= 0 {
		c.Sensitivity = d.Sensitivity
	}
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.MinSamples <= 0 {
		c.MinSamples = d.MinSamples
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = d.MaxEvents
	}
	return c
}
