package health

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vigilhq/vigil/internal/alert"
	"github.com/vigilhq/vigil/internal/detect"
	"github.com/vigilhq/vigil/internal/metrics"
	"github.com/vigilhq/vigil/internal/profile"
	"github.com/vigilhq/vigil/internal/recovery"
	"github.com/vigilhq/vigil/internal/trend"
)

// OrchestratorForProfile builds a fully wired orchestrator from a
// normalized profile. Durations in the profile are already validated, so
// parse failures here fall back to defaults instead of erroring.
func OrchestratorForProfile(p *profile.Profile, source metrics.Source, exec recovery.Executor) *Orchestrator {
	detector := detect.New(detect.Config{
		Sensitivity: p.Spec.Sensitivity,
		WindowSize:  p.Spec.WindowSize,
		MinSamples:  p.Spec.MinSamples,
	})

	estimator := trend.New(trend.Config{
		SlopeThreshold: p.Spec.Trend.SlopeThreshold,
	})

	arbiter := alert.New(alert.Config{
		BusinessHoursStart: p.Spec.Trend.BusinessHours.Start,
		BusinessHoursEnd:   p.Spec.Trend.BusinessHours.End,
	})

	recoveryCfg := recovery.DefaultConfig()
	recoveryCfg.Enabled = p.AutoRecoveryEnabled()
	recoveryCfg.Thresholds = map[string]float64{
		"cpu_critical":    p.CriticalFor(metrics.CPUPercent),
		"memory_critical": p.CriticalFor(metrics.MemoryPercent),
		"disk_critical":   p.CriticalFor(metrics.DiskPercent),
	}
	if d, err := profile.ParseDuration(p.Spec.AutoRecovery.ActionTimeout); err == nil {
		recoveryCfg.ActionTimeout = d
	}
	dispatcher := recovery.NewDispatcher(recoveryCfg, exec)

	thresholds := make(map[string]Thresholds, len(TrackedMetrics))
	for _, name := range TrackedMetrics {
		thresholds[name] = Thresholds{
			Warning:  p.WarningFor(name),
			Critical: p.CriticalFor(name),
		}
	}

	cfg := Config{Thresholds: thresholds}
	if d, err := profile.ParseDuration(p.Spec.CacheTTL); err == nil {
		cfg.CacheTTL = d
	}

	return New(cfg, source, detector, estimator, arbiter, dispatcher)
}

// Monitor runs periodic health checks for every loaded profile, one
// goroutine per profile, and persists finished reports to an optional
// audit sink.
type Monitor struct {
	source  metrics.Source
	exec    recovery.Executor
	dir     string
	entries []*monitorEntry
	audit   AuditSink
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

type monitorEntry struct {
	profile      *profile.Profile
	orchestrator *Orchestrator
	interval     time.Duration
}

// NewMonitor creates a monitor that loads profiles from dir.
func NewMonitor(source metrics.Source, exec recovery.Executor, dir string) *Monitor {
	return &Monitor{source: source, exec: exec, dir: dir}
}

// SetAuditSink sets the report persistence backend (optional).
func (m *Monitor) SetAuditSink(audit AuditSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = audit
}

// LoadProfiles loads and validates profiles from the configured
// directory, then builds one orchestrator per profile.
func (m *Monitor) LoadProfiles(schemaPath string) error {
	profiles, errors := profile.LoadFromDirectory(m.dir)
	if len(errors) > 0 {
		return fmt.Errorf("failed to load profiles: %d errors", len(errors))
	}

	if len(profiles) == 0 {
		return fmt.Errorf("no profiles found in %s", m.dir)
	}

	validator, err := profile.NewValidator(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	validationErrors := validator.ValidateDirectory(m.dir)
	if len(validationErrors) > 0 {
		return fmt.Errorf("profile validation failed: %d errors", len(validationErrors))
	}

	entries := make([]*monitorEntry, 0, len(profiles))
	for _, pf := range profiles {
		pf.Profile.Normalize()

		interval, err := profile.ParseDuration(pf.Profile.Spec.CheckInterval)
		if err != nil {
			return fmt.Errorf("profile %s: invalid check interval: %w", pf.Profile.Metadata.ID, err)
		}

		entries = append(entries, &monitorEntry{
			profile:      pf.Profile,
			orchestrator: OrchestratorForProfile(pf.Profile, m.source, m.exec),
			interval:     interval,
		})
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()

	log.Printf("Loaded %d monitor profiles", len(entries))
	return nil
}

// Start begins periodic checks for every loaded profile.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}

	if len(m.entries) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("no profiles loaded, call LoadProfiles() first")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	entries := m.entries
	m.mu.Unlock()

	for _, entry := range entries {
		m.wg.Add(1)
		go m.checkLoop(ctx, entry)
	}

	log.Printf("Started monitor for %d profiles", len(entries))
	return nil
}

// Stop stops the monitor and waits for in-flight checks to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}

	m.cancel()
	m.running = false
	m.mu.Unlock()

	log.Println("Stopping monitor...")
	m.wg.Wait()
	log.Println("Monitor stopped")
}

// checkLoop runs periodic checks for a single profile.
func (m *Monitor) checkLoop(ctx context.Context, entry *monitorEntry) {
	defer m.wg.Done()

	m.checkOnce(ctx, entry)

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce(ctx, entry)
		}
	}
}

// checkOnce runs one health check for a profile and persists the report.
func (m *Monitor) checkOnce(ctx context.Context, entry *monitorEntry) {
	// Bound the cycle by the check interval so a stuck adapter cannot
	// stall the loop past its next tick.
	checkCtx, cancel := context.WithTimeout(ctx, entry.interval)
	defer cancel()

	report := entry.orchestrator.ForceCheck(checkCtx)

	m.mu.RLock()
	audit := m.audit
	m.mu.RUnlock()

	id := entry.profile.Metadata.ID
	if audit != nil {
		if err := audit.StoreReport(id, report); err != nil {
			log.Printf("Warning: failed to store report for profile %s: %v", id, err)
		}
		if err := audit.UpdateLatestState(id, report); err != nil {
			log.Printf("Warning: failed to update latest state for profile %s: %v", id, err)
		}
	}

	log.Printf("Checked profile %s: status=%s, issues=%d, alerts=%d",
		id, report.Status, len(report.Issues), len(report.Alerts))
}

// Orchestrator returns the orchestrator for a profile ID, or nil.
func (m *Monitor) Orchestrator(profileID string) *Orchestrator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.entries {
		if entry.profile.Metadata.ID == profileID {
			return entry.orchestrator
		}
	}
	return nil
}

// Profiles returns the loaded profiles.
func (m *Monitor) Profiles() []*profile.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*profile.Profile, 0, len(m.entries))
	for _, entry := range m.entries {
		result = append(result, entry.profile)
	}
	return result
}

// AuditSinkBackend returns the configured audit sink, or nil.
func (m *Monitor) AuditSinkBackend() AuditSink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.audit
}

// SetEntriesForTest installs pre-built orchestrators directly.
func (m *Monitor) SetEntriesForTest(profiles []*profile.Profile, orchestrators []*Orchestrator, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.entries[:0]
	for i, p := range profiles {
		m.entries = append(m.entries, &monitorEntry{
			profile:      p,
			orchestrator: orchestrators[i],
			interval:     interval,
		})
	}
}

// CheckNow forces an immediate check of a specific profile.
func (m *Monitor) CheckNow(ctx context.Context, profileID string) (*Report, error) {
	m.mu.RLock()
	var target *monitorEntry
	for _, entry := range m.entries {
		if entry.profile.Metadata.ID == profileID {
			target = entry
			break
		}
	}
	m.mu.RUnlock()

	if target == nil {
		return nil, fmt.Errorf("profile not found: %s", profileID)
	}

	return target.orchestrator.ForceCheck(ctx), nil
}
