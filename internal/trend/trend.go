package trend

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Direction classifies the slope of a metric's recent history.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// Estimate is the derived trend for one metric. It is recomputed on demand
// and never stored.
type Estimate struct {
	Metric    string    `json:"metric"`
	Slope     float64   `json:"slope"`
	Direction Direction `json:"direction"`
}

// PredictedIssue is a forecast incident derived from an increasing trend
// approaching a critical threshold.
type PredictedIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	ETAMinutes  int    `json:"etaMinutes"`
	Description string `json:"description"`
}

// PredictedIssueType is the alert type assigned to trend forecasts.
const PredictedIssueType = "predictive_warning"

// Config tunes the estimator. Zero fields fall back to defaults.
type Config struct {
	// HistorySize caps the per-metric point history (FIFO eviction).
	HistorySize int
	// FitPoints is how many trailing points the least-squares fit uses.
	FitPoints int
	// MinPoints is the history length below which the trend is stable.
	MinPoints int
	// SlopeThreshold separates stable from increasing/decreasing. This is
	// a unit-per-sample rate, not a normalized percentage; the default of
	// 1.0 assumes 0-100 scaled metrics sampled once per cycle.
	SlopeThreshold float64
	// ForecastFloor is the current value below which no prediction is
	// emitted even on an increasing trend.
	ForecastFloor float64
}

// DefaultConfig returns the estimator defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize:    100,
		FitPoints:      10,
		MinPoints:      5,
		SlopeThreshold: 1.0,
		ForecastFloor:  70,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.FitPoints <= 0 {
		c.FitPoints = d.FitPoints
	}
	if c.MinPoints <= 0 {
		c.MinPoints = d.MinPoints
	}
	if c.SlopeThreshold <= 0 {
		c.SlopeThreshold = d.SlopeThreshold
	}
	if c.ForecastFloor <= 0 {
		c.ForecastFloor = d.ForecastFloor
	}
	return c
}

type point struct {
	at    time.Time
	value float64
}

// Estimator maintains bounded per-metric histories and fits a least-squares
// slope over the trailing points. Safe for concurrent use.
type Estimator struct {
	mu      sync.Mutex
	cfg     Config
	history map[string][]point
	now     func() time.Time
}

// New creates an estimator. Zero-valued config fields take defaults.
func New(cfg Config) *Estimator {
	return &Estimator{
		cfg:     cfg.withDefaults(),
		history: make(map[string][]point),
		now:     time.Now,
	}
}

// SetClock overrides the estimator's clock for deterministic tests.
func (e *Estimator) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Record appends a value to the metric's history, evicting the oldest point
// once the cap is reached.
func (e *Estimator) Record(metric string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pts := append(e.history[metric], point{at: e.now(), value: value})
	if len(pts) > e.cfg.HistorySize {
		pts = pts[1:]
	}
	e.history[metric] = pts
}

// Estimate fits the trailing points and classifies the direction. Histories
// shorter than MinPoints come back stable with a zero slope.
func (e *Estimator) Estimate(metric string) Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()

	est := Estimate{Metric: metric, Direction: DirectionStable}

	pts := e.history[metric]
	if len(pts) < e.cfg.MinPoints {
		return est
	}

	if len(pts) > e.cfg.FitPoints {
		pts = pts[len(pts)-e.cfg.FitPoints:]
	}

	est.Slope = slope(pts)
	switch {
	case est.Slope >= e.cfg.SlopeThreshold:
		est.Direction = DirectionIncreasing
	case est.Slope <= -e.cfg.SlopeThreshold:
		est.Direction = DirectionDecreasing
	}

	return est
}

// Forecast projects when an increasing metric will hit its critical
// threshold. It returns false when the trend does not warrant a prediction:
// not increasing, or the current value is still below the forecast floor.
func (e *Estimator) Forecast(metric string, current, critical float64) (PredictedIssue, bool) {
	est := e.Estimate(metric)
	if est.Direction != DirectionIncreasing || current <= e.cfg.ForecastFloor {
		return PredictedIssue{}, false
	}

	// max(0.1, slope) keeps near-zero slopes from blowing up the ETA.
	eta := int(math.Round((critical - current) / math.Max(0.1, est.Slope)))
	if eta < 1 {
		eta = 1
	}

	return PredictedIssue{
		Type:       PredictedIssueType,
		Severity:   "warning",
		ETAMinutes: eta,
		Description: fmt.Sprintf("%s rising at %.2f/sample (currently %.1f), projected to reach %.0f in ~%d min",
			metric, est.Slope, current, critical, eta),
	}, true
}

// slope is the ordinary least-squares slope of value against sample index
// (x = 0..n-1). A zero denominator (impossible with distinct indices, but
// guarded anyway) yields zero.
func slope(pts []point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := 0.0
	for _, p := range pts {
		yMean += p.value
	}
	yMean /= float64(n)

	num := 0.0
	den := 0.0
	for i, p := range pts {
		dx := float64(i) - xMean
		num += dx * (p.value - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
