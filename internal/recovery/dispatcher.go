package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/vigilhq/vigil/internal/metrics"
)

// Result is what an executor hook reports. Hooks communicate failure
// through Success=false, never through errors or panics.
type Result struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// Executor implements the four OS-level recovery hooks. Implementations
// must be idempotent and best-effort; the dispatcher bounds each call with
// a context deadline.
type Executor interface {
	// Deprioritize lowers the scheduling priority of processes that
	// individually exceed the CPU hog threshold.
	Deprioritize(ctx context.Context) Result
	// DropCaches asks the OS to drop filesystem/page caches.
	DropCaches(ctx context.Context) Result
	// PurgeTemp deletes stale files under the configured temp dirs.
	PurgeTemp(ctx context.Context) Result
	// CapFrequency requests a lower CPU frequency ceiling.
	CapFrequency(ctx context.Context) Result
}

// Outcome records one recovery action taken during a cycle.
type Outcome struct {
	Trigger string `json:"trigger"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// Action names reported in outcomes.
const (
	ActionDeprioritize = "deprioritize"
	ActionDropCaches   = "drop_caches"
	ActionPurgeTemp    = "purge_temp"
	ActionCapFrequency = "cap_frequency"
)

// Config tunes the dispatcher.
type Config struct {
	// Enabled gates all recovery. When false, MaybeRecover is a no-op.
	Enabled bool
	// Thresholds are the critical values that trigger each action,
	// keyed cpu_critical, memory_critical, disk_critical,
	// temperature_critical. Missing keys take defaults.
	Thresholds map[string]float64
	// ActionTimeout bounds each individual hook invocation.
	ActionTimeout time.Duration
}

// Default critical thresholds.
const (
	defaultCriticalPercent = 95
	defaultCriticalTempC   = 90
	defaultActionTimeout   = 5 * time.Second
)

// DefaultConfig returns an enabled dispatcher config with default
// thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Thresholds: map[string]float64{
			"cpu_critical":         defaultCriticalPercent,
			"memory_critical":      defaultCriticalPercent,
			"disk_critical":        defaultCriticalPercent,
			"temperature_critical": defaultCriticalTempC,
		},
		ActionTimeout: defaultActionTimeout,
	}
}

func (c Config) threshold(key string, fallback float64) float64 {
	if v, ok := c.Thresholds[key]; ok {
		return v
	}
	return fallback
}

// Dispatcher maps critical metric breaches to bounded recovery actions.
type Dispatcher struct {
	cfg  Config
	exec Executor
}

// NewDispatcher creates a dispatcher around the given executor.
func NewDispatcher(cfg Config, exec Executor) *Dispatcher {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	return &Dispatcher{cfg: cfg, exec: exec}
}

// MaybeRecover runs at most one action per breached metric and reports the
// outcomes. Failures are recorded, never propagated, and never retried
// within the same cycle.
func (d *Dispatcher) MaybeRecover(ctx context.Context, snap metrics.Snapshot) []Outcome {
	if !d.cfg.Enabled || d.exec == nil {
		return nil
	}

	var outcomes []Outcome

	if snap.Value(metrics.CPUPercent) > d.cfg.threshold("cpu_critical", defaultCriticalPercent) {
		outcomes = append(outcomes, d.run(ctx, metrics.CPUPercent, ActionDeprioritize, d.exec.Deprioritize))
	}
	if snap.Value(metrics.MemoryPercent) > d.cfg.threshold("memory_critical", defaultCriticalPercent) {
		outcomes = append(outcomes, d.run(ctx, metrics.MemoryPercent, ActionDropCaches, d.exec.DropCaches))
	}
	if snap.Value(metrics.DiskPercent) > d.cfg.threshold("disk_critical", defaultCriticalPercent) {
		outcomes = append(outcomes, d.run(ctx, metrics.DiskPercent, ActionPurgeTemp, d.exec.PurgeTemp))
	}
	if snap.Has(metrics.TemperatureC) && snap.Value(metrics.TemperatureC) > d.cfg.threshold("temperature_critical", defaultCriticalTempC) {
		outcomes = append(outcomes, d.run(ctx, metrics.TemperatureC, ActionCapFrequency, d.exec.CapFrequency))
	}

	return outcomes
}

// run invokes one hook with a bounded deadline, converting panics and
// deadline overruns into failed outcomes.
func (d *Dispatcher) run(ctx context.Context, trigger, action string, hook func(context.Context) Result) Outcome {
	actionCtx, cancel := context.WithTimeout(ctx, d.cfg.ActionTimeout)
	defer cancel()

	res := invoke(actionCtx, hook)

	return Outcome{
		Trigger: trigger,
		Action:  action,
		Success: res.Success,
		Detail:  res.Detail,
	}
}

// invoke shields the dispatcher from a panicking hook. Nothing crosses the
// recovery boundary except a Result.
func invoke(ctx context.Context, hook func(context.Context) Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Success: false, Detail: fmt.Sprintf("recovery action panicked: %v", r)}
		}
	}()
	return hook(ctx)
}
