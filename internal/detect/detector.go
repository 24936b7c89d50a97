package detect

import (
	"math"
	"sort"
	"sync"
	"time"
)

// minSamplesForStats is the window size below which mean/stddev are left at
// their last computed values rather than recomputed.
const minSamplesForStats = 5

// recentEventLimit caps the Recent slice returned by Summary.
const recentEventLimit = 10

// baselineModel is the rolling statistical model for one metric. Mean and
// stddev are recomputed from the retained window on update, never
// incrementally accumulated, so they reflect exactly the window contents.
type baselineModel struct {
	window []float64
	mean   float64
	stddev float64
	count  int
}

// Detector learns a per-metric baseline and classifies incoming values by
// z-score. All methods are safe for concurrent use.
type Detector struct {
	mu     sync.Mutex
	cfg    Config
	models map[string]*baselineModel
	events []Event
	now    func() time.Time
}

// New creates a detector. Zero-valued config fields take defaults.
func New(cfg Config) *Detector {
	return &Detector{
		cfg:    cfg.withDefaults(),
		models: make(map[string]*baselineModel),
		now:    time.Now,
	}
}

// SetClock overrides the detector's clock. Tests use this to make the
// trailing-window summary deterministic.
func (d *Detector) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// Observe feeds one value into the metric's baseline and classifies it.
// It never returns an error: unknown metrics and thin baselines come back
// as non-anomalous with a reason.
func (d *Detector) Observe(metric string, value float64) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := Result{Metric: metric, Value: value}

	m, ok := d.models[metric]
	if !ok {
		d.models[metric] = &baselineModel{window: []float64{value}, count: 1}
		res.Reason = ReasonInsufficientData
		return res
	}

	m.window = append(m.window, value)
	if len(m.window) > d.cfg.WindowSize {
		m.window = m.window[1:]
	}
	m.count = len(m.window)

	if m.count >= minSamplesForStats {
		m.mean = mean(m.window)
		m.stddev = stddev(m.window, m.mean)
	}

	if m.count < d.cfg.MinSamples || m.stddev == 0 {
		res.Reason = ReasonBuildingBaseline
		return res
	}

	res.ZScore = math.Abs(value-m.mean) / m.stddev
	res.IsAnomaly = res.ZScore > d.cfg.Sensitivity
	res.Severity = severityForZScore(res.ZScore)

	if res.IsAnomaly {
		d.events = append(d.events, Event{
			Metric: metric,
			Value:  value,
			ZScore: res.ZScore,
			At:     d.now(),
		})
		if len(d.events) > d.cfg.MaxEvents {
			d.events = d.events[1:]
		}
	}

	return res
}

// Baseline returns the current mean, stddev and sample count for a metric.
// ok is false if the metric has never been observed.
func (d *Detector) Baseline(metric string) (mean, stddev float64, count int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.models[metric]
	if !ok {
		return 0, 0, 0, false
	}
	return m.mean, m.stddev, m.count, true
}

// Summary reports anomaly activity over the trailing window. windowSeconds
// values <= 0 default to one hour.
func (d *Detector) Summary(windowSeconds int) Summary {
	if windowSeconds <= 0 {
		windowSeconds = 3600
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-time.Duration(windowSeconds) * time.Second)

	s := Summary{
		Recent:            []Event{},
		MetricsAffected:   []string{},
		SeverityBreakdown: make(map[Severity]int),
	}

	affected := make(map[string]struct{})
	for _, ev := range d.events {
		if ev.At.Before(cutoff) {
			continue
		}
		s.Count++
		affected[ev.Metric] = struct{}{}
		s.SeverityBreakdown[severityForZScore(ev.ZScore)]++
		s.Recent = append(s.Recent, ev)
	}

	if len(s.Recent) > recentEventLimit {
		s.Recent = s.Recent[len(s.Recent)-recentEventLimit:]
	}

	for metric := range affected {
		s.MetricsAffected = append(s.MetricsAffected, metric)
	}
	sort.Strings(s.MetricsAffected)

	return s
}

// severityForZScore bands a z-score. Boundaries are strict: exactly 2.5 is
// still low, exactly 4.0 is still high.
func severityForZScore(z float64) Severity {
	switch {
	case z > 4.0:
		return SeverityCritical
	case z > 3.0:
		return SeverityHigh
	case z > 2.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation of the window.
func stddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}
