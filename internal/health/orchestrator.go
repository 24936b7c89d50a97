package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vigilhq/vigil/internal/alert"
	"github.com/vigilhq/vigil/internal/detect"
	"github.com/vigilhq/vigil/internal/metrics"
	"github.com/vigilhq/vigil/internal/recovery"
	"github.com/vigilhq/vigil/internal/trend"
)

// TrackedMetrics are the metrics the orchestrator analyzes every cycle.
// Metrics absent from a snapshot read as zero and never fail the cycle.
var TrackedMetrics = []string{
	metrics.CPUPercent,
	metrics.MemoryPercent,
	metrics.DiskPercent,
	metrics.Load1Min,
}

// forecastMetrics are the subset eligible for time-to-threshold
// predictions.
var forecastMetrics = []string{metrics.CPUPercent, metrics.MemoryPercent}

// metricAlertTypes maps a tracked metric to the alert type raised when it
// breaches its critical threshold.
var metricAlertTypes = map[string]string{
	metrics.CPUPercent:    alert.TypeHighCPU,
	metrics.MemoryPercent: alert.TypeHighMemory,
	metrics.DiskPercent:   alert.TypeHighDisk,
	metrics.Load1Min:      alert.TypeCriticalSystem,
}

// Thresholds is a warning/critical pair for one tracked metric.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Config assembles the orchestrator.
type Config struct {
	// Thresholds per tracked metric. Missing metrics take 80/95.
	Thresholds map[string]Thresholds
	// CacheTTL bounds how long a report is served unchanged. Zero
	// takes the 30s default.
	CacheTTL time.Duration
}

const defaultCacheTTL = 30 * time.Second

const (
	defaultWarning  = 80
	defaultCritical = 95
)

// Orchestrator drives one analysis cycle: snapshot, anomaly and trend
// analysis, alert arbitration, recovery, report assembly. It is the only
// component that composes the others and holds no analysis logic of its
// own beyond threshold comparison.
type Orchestrator struct {
	mu       sync.Mutex
	cfg      Config
	source   metrics.Source
	detector *detect.Detector
	trends   *trend.Estimator
	arbiter  *alert.Arbiter
	recovery *recovery.Dispatcher

	cached   *Report
	cachedAt time.Time
	now      func() time.Time
}

// New wires an orchestrator from its parts.
func New(cfg Config, source metrics.Source, detector *detect.Detector, trends *trend.Estimator, arbiter *alert.Arbiter, dispatcher *recovery.Dispatcher) *Orchestrator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = make(map[string]Thresholds)
	}
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		detector: detector,
		trends:   trends,
		arbiter:  arbiter,
		recovery: dispatcher,
		now:      time.Now,
	}
}

// SetClock overrides the orchestrator's clock for deterministic cache
// tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

// Detector exposes the anomaly detector for summary queries.
func (o *Orchestrator) Detector() *detect.Detector { return o.detector }

// Arbiter exposes the alert arbiter so external candidates can share the
// same suppression state.
func (o *Orchestrator) Arbiter() *alert.Arbiter { return o.arbiter }

// CheckHealth runs one cycle, or returns the cached report when it is
// younger than the TTL. Concurrent callers serialize on the orchestrator
// mutex; cached hits return the identical report value.
func (o *Orchestrator) CheckHealth(ctx context.Context) *Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cached != nil && o.now().Sub(o.cachedAt) < o.cfg.CacheTTL {
		return o.cached
	}
	return o.runCycleLocked(ctx)
}

// ForceCheck discards any cached report and runs a fresh cycle.
func (o *Orchestrator) ForceCheck(ctx context.Context) *Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cached = nil
	return o.runCycleLocked(ctx)
}

func (o *Orchestrator) runCycleLocked(ctx context.Context) *Report {
	report := &Report{
		Issues:          []Issue{},
		Anomalies:       []detect.Result{},
		Trends:          make(map[string]trend.Estimate),
		Predictions:     []trend.PredictedIssue{},
		Alerts:          []alert.Decision{},
		Recoveries:      []recovery.Outcome{},
		Recommendations: []string{},
		GeneratedAt:     o.now(),
	}

	snap, err := o.source.Snapshot(ctx)
	if snap == nil {
		snap = metrics.Snapshot{}
	}
	report.Metrics = snap
	sourceFailed := err != nil

	// Analysis phase: feed every tracked metric through the detector and
	// trend estimator, collecting threshold breaches along the way.
	candidates := make([]string, 0, 2)
	for _, name := range TrackedMetrics {
		value := snap.Value(name)

		res := o.detector.Observe(name, value)
		if res.IsAnomaly {
			report.Anomalies = append(report.Anomalies, res)
		}

		o.trends.Record(name, value)
		report.Trends[name] = o.trends.Estimate(name)

		th := o.thresholds(name)
		switch {
		case value > th.Critical:
			report.Issues = append(report.Issues, Issue{
				Metric:    name,
				Severity:  string(detect.SeverityCritical),
				Value:     value,
				Threshold: th.Critical,
				Message:   fmt.Sprintf("%s at %.1f exceeds critical threshold %.1f", name, value, th.Critical),
			})
			candidates = append(candidates, metricAlertTypes[name])
		case value > th.Warning:
			report.Issues = append(report.Issues, Issue{
				Metric:    name,
				Severity:  string(detect.SeverityMedium),
				Value:     value,
				Threshold: th.Warning,
				Message:   fmt.Sprintf("%s at %.1f exceeds warning threshold %.1f", name, value, th.Warning),
			})
		}
	}

	for _, name := range forecastMetrics {
		if issue, ok := o.trends.Forecast(name, snap.Value(name), o.thresholds(name).Critical); ok {
			report.Predictions = append(report.Predictions, issue)
		}
	}

	report.Status = o.classify(report, sourceFailed)
	report.Recommendations = recommendations(report)

	// Arbitration phase: threshold breaches, anomalies and predictions
	// each become candidate alerts; only accepted decisions surface.
	if ctx.Err() != nil {
		return o.finishLocked(report, true)
	}

	if len(report.Anomalies) > 0 {
		candidates = append(candidates, alert.TypeAnomalyDetected)
	}
	if len(report.Predictions) > 0 {
		candidates = append(candidates, alert.TypePredictiveWarning)
	}
	sort.Strings(candidates)

	seen := make(map[string]struct{}, len(candidates))
	for _, alertType := range candidates {
		if alertType == "" {
			continue
		}
		// One candidate per type per cycle; the suppression windows
		// handle cross-cycle dedup.
		if _, dup := seen[alertType]; dup {
			continue
		}
		seen[alertType] = struct{}{}

		decision := o.arbiter.Decide(alertType, snap)
		if decision.ShouldAlert {
			report.Alerts = append(report.Alerts, decision)
		}
	}

	// Recovery phase, skipped when the deadline is already gone: a late
	// report beats an OS action racing its context.
	if ctx.Err() != nil {
		return o.finishLocked(report, true)
	}
	report.Recoveries = o.recovery.MaybeRecover(ctx, snap)

	return o.finishLocked(report, false)
}

// finishLocked caches and returns the report. Partial reports (deadline
// expired mid-cycle) are returned but not cached, so the next caller gets
// a full cycle.
func (o *Orchestrator) finishLocked(report *Report, partial bool) *Report {
	report.Partial = partial
	if partial {
		return report
	}
	o.cached = report
	o.cachedAt = o.now()
	return report
}

func (o *Orchestrator) thresholds(metric string) Thresholds {
	th, ok := o.cfg.Thresholds[metric]
	if !ok {
		return Thresholds{Warning: defaultWarning, Critical: defaultCritical}
	}
	if th.Warning <= 0 {
		th.Warning = defaultWarning
	}
	if th.Critical <= 0 {
		th.Critical = defaultCritical
	}
	return th
}

// classify derives the overall status: any critical breach wins, then any
// warning, then healthy. A failed metrics pull reads unknown regardless.
func (o *Orchestrator) classify(report *Report, sourceFailed bool) Status {
	if sourceFailed {
		return StatusUnknown
	}

	status := StatusHealthy
	for _, issue := range report.Issues {
		if issue.Severity == string(detect.SeverityCritical) {
			return StatusCritical
		}
		status = StatusWarning
	}
	return status
}

// recommendations derives operator hints from this cycle's findings.
func recommendations(report *Report) []string {
	recs := []string{}

	for _, issue := range report.Issues {
		switch issue.Metric {
		case metrics.CPUPercent:
			recs = append(recs, "investigate cpu-heavy processes; consider spreading load")
		case metrics.MemoryPercent:
			recs = append(recs, "check for memory leaks or restart memory-heavy services")
		case metrics.DiskPercent:
			recs = append(recs, "free disk space: rotate logs, clear caches and temp files")
		case metrics.Load1Min:
			recs = append(recs, "system load elevated; check runnable process count and io wait")
		}
	}

	if est, ok := report.Trends[metrics.DiskPercent]; ok && est.Direction == trend.DirectionIncreasing {
		recs = append(recs, "disk usage trending upward; plan cleanup before it becomes critical")
	}

	return recs
}
