package alert

import "time"

// Priority is the urgency band assigned to an emitted alert.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Well-known alert types. Unknown types are accepted and default to medium
// priority.
const (
	TypeCriticalSystem    = "critical_system"
	TypeHighCPU           = "high_cpu"
	TypeHighMemory        = "high_memory"
	TypeHighDisk          = "high_disk"
	TypeAnomalyDetected   = "anomaly_detected"
	TypePredictiveWarning = "predictive_warning"
)

// Decision reasons.
const (
	ReasonAccepted        = "accepted"
	ReasonSuppressed      = "suppressed"
	ReasonStormProtection = "alert_storm_protection"
)

// Decision is the arbitration output for one candidate alert. It is
// returned to the caller for dispatch and never stored by the arbiter.
type Decision struct {
	ShouldAlert      bool      `json:"shouldAlert"`
	AlertType        string    `json:"alertType"`
	Priority         Priority  `json:"priority,omitempty"`
	CorrelationScore float64   `json:"correlationScore,omitempty"`
	SuppressUntil    time.Time `json:"suppressUntil"`
	Reason           string    `json:"reason"`
}

// Record is one emitted alert, retained in a bounded FIFO for
// storm-detection lookback and audit.
type Record struct {
	Type             string             `json:"type"`
	Priority         Priority           `json:"priority"`
	CorrelationScore float64            `json:"correlationScore"`
	Context          map[string]float64 `json:"context,omitempty"`
	At               time.Time          `json:"at"`
}

// Config tunes the arbiter. Zero fields fall back to defaults. The
// business-hours window and correlation bonuses are calibrated for 0-100
// scaled metrics; they are configuration precisely because those constants
// do not transfer to differently scaled signals.
type Config struct {
	// HistorySize caps the emitted-alert record history (FIFO eviction).
	HistorySize int
	// StormLookback is the trailing window scanned for same-type alerts.
	StormLookback time.Duration
	// StormThreshold is the same-type count that must be strictly
	// exceeded within the lookback to trip storm protection.
	StormThreshold int
	// StormSuppression is how long a stormy alert type stays muted.
	StormSuppression time.Duration
	// EscalationScore is the correlation score that must be strictly
	// exceeded to escalate the priority one band.
	EscalationScore float64
	// CorrelationCap bounds the correlation score.
	CorrelationCap float64
	// BusinessHoursStart/End bound the inclusive local-hour range that
	// earns the business-hours correlation bonus.
	BusinessHoursStart int
	BusinessHoursEnd   int
}

// DefaultConfig returns the arbiter defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize:        100,
		StormLookback:      5 * time.Minute,
		StormThreshold:     5,
		StormSuppression:   30 * time.Minute,
		EscalationScore:    1.5,
		CorrelationCap:     2.0,
		BusinessHoursStart: 9,
		BusinessHoursEnd:   17,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.StormLookback <= 0 {
		c.StormLookback = d.StormLookback
	}
	if c.StormThreshold <= 0 {
		c.StormThreshold = d.StormThreshold
	}
	if c.StormSuppression <= 0 {
		c.StormSuppression = d.StormSuppression
	}
	if c.EscalationScore <= 0 {
		c.EscalationScore = d.EscalationScore
	}
	if c.CorrelationCap <= 0 {
		c.CorrelationCap = d.CorrelationCap
	}
	if c.BusinessHoursStart == 0 && c.BusinessHoursEnd == 0 {
		c.BusinessHoursStart = d.BusinessHoursStart
		c.BusinessHoursEnd = d.BusinessHoursEnd
	}
	return c
}
