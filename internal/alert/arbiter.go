package alert

import (
	"fmt"
	"sync"
	"time"
)

// suppressionDurations maps the emitted priority to how long the caller
// should hold off on re-raising the same alert type.
var suppressionDurations = map[Priority]time.Duration{
	PriorityLow:      3600 * time.Second,
	PriorityMedium:   1800 * time.Second,
	PriorityHigh:     900 * time.Second,
	PriorityCritical: 300 * time.Second,
}

// basePriorities is the fixed alert-type priority table. Types not listed
// default to medium.
var basePriorities = map[string]Priority{
	TypeCriticalSystem:    PriorityHigh,
	TypeHighCPU:           PriorityMedium,
	TypeHighMemory:        PriorityMedium,
	TypeHighDisk:          PriorityHigh,
	TypeAnomalyDetected:   PriorityLow,
	TypePredictiveWarning: PriorityLow,
}

// Arbiter decides whether a candidate alert should be emitted, and how
// loudly. It owns the suppression registry and the bounded record history
// used for storm detection. Safe for concurrent use.
type Arbiter struct {
	mu           sync.Mutex
	cfg          Config
	suppressions map[string]time.Time
	history      []Record
	now          func() time.Time
}

// New creates an arbiter. Zero-valued config fields take defaults.
func New(cfg Config) *Arbiter {
	return &Arbiter{
		cfg:          cfg.withDefaults(),
		suppressions: make(map[string]time.Time),
		now:          time.Now,
	}
}

// SetClock overrides the arbiter's clock so suppression-window and
// storm-lookback tests run deterministically without sleeping.
func (a *Arbiter) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Decide arbitrates one candidate alert. The context map carries the
// current metric snapshot and feeds the correlation heuristics.
func (a *Arbiter) Decide(alertType string, context map[string]float64) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	// Suppression check with lazy expiry: an entry past its deadline is
	// treated as absent and deleted on this lookup.
	if until, ok := a.suppressions[alertType]; ok {
		if now.Before(until) {
			return Decision{
				AlertType:     alertType,
				SuppressUntil: until,
				Reason:        ReasonSuppressed,
			}
		}
		delete(a.suppressions, alertType)
	}

	// Storm protection: strictly more than StormThreshold same-type
	// alerts inside the lookback mutes the type. The scan is bounded by
	// the history cap.
	cutoff := now.Add(-a.cfg.StormLookback)
	recent := 0
	for _, rec := range a.history {
		if rec.Type == alertType && rec.At.After(cutoff) {
			recent++
		}
	}
	if recent > a.cfg.StormThreshold {
		until := now.Add(a.cfg.StormSuppression)
		a.suppressions[alertType] = until
		return Decision{
			AlertType:     alertType,
			SuppressUntil: until,
			Reason:        ReasonStormProtection,
		}
	}

	score := a.correlationScore(alertType, context, now)

	priority := basePriorities[alertType]
	if priority == "" {
		priority = PriorityMedium
	}
	priority = escalate(priority, score, a.cfg.EscalationScore)

	a.history = append(a.history, Record{
		Type:             alertType,
		Priority:         priority,
		CorrelationScore: score,
		Context:          context,
		At:               now,
	})
	if len(a.history) > a.cfg.HistorySize {
		a.history = a.history[1:]
	}

	return Decision{
		ShouldAlert:      true,
		AlertType:        alertType,
		Priority:         priority,
		CorrelationScore: score,
		SuppressUntil:    now.Add(suppressionDurations[priority]),
		Reason:           ReasonAccepted,
	}
}

// Suppress registers an explicit suppression window for an alert type,
// letting the host mute a type after dispatching a notification.
func (a *Arbiter) Suppress(alertType string, until time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suppressions[alertType] = until
}

// History returns a copy of the retained alert records, newest last.
func (a *Arbiter) History() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Record, len(a.history))
	copy(out, a.history)
	return out
}

// correlationScore starts at 1.0 and adds bonuses when the alert co-occurs
// with other suggestive signals, capped at CorrelationCap.
func (a *Arbiter) correlationScore(alertType string, context map[string]float64, now time.Time) float64 {
	score := 1.0

	if alertType == TypeHighCPU && context["memory_percent"] > 80 {
		score += 0.3
	}
	if alertType == TypeHighMemory && context["disk_io"] > 50 {
		score += 0.2
	}
	if alertType == TypeHighCPU || alertType == TypeHighMemory {
		hour := now.Hour()
		if hour >= a.cfg.BusinessHoursStart && hour <= a.cfg.BusinessHoursEnd {
			score += 0.1
		}
	}

	if score > a.cfg.CorrelationCap {
		score = a.cfg.CorrelationCap
	}
	return score
}

// escalate bumps the priority one band when the correlation score strictly
// exceeds the threshold. High and critical have no further band to climb.
func escalate(p Priority, score, threshold float64) Priority {
	if score <= threshold {
		return p
	}
	switch p {
	case PriorityMedium:
		return PriorityHigh
	case PriorityLow:
		return PriorityMedium
	default:
		return p
	}
}

// SuppressionFor reports the active suppression deadline for an alert
// type, if any. Expired entries read as absent.
func (a *Arbiter) SuppressionFor(alertType string) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	until, ok := a.suppressions[alertType]
	if !ok || !a.now().Before(until) {
		return time.Time{}, false
	}
	return until, true
}

// String implements fmt.Stringer for log lines.
func (d Decision) String() string {
	if !d.ShouldAlert {
		return fmt.Sprintf("%s: suppressed (%s)", d.AlertType, d.Reason)
	}
	return fmt.Sprintf("%s: emit priority=%s score=%.2f", d.AlertType, d.Priority, d.CorrelationScore)
}
