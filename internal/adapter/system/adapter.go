package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/vigilhq/vigil/internal/metrics"
)

// Adapter reads metrics from the local host. CPU, memory, disk and load
// are always reported; temperature and disk io are best-effort and are
// simply absent from the snapshot when the host does not expose them.
type Adapter struct {
	// DiskPath is the mount point measured for disk_percent.
	DiskPath string

	mu         sync.Mutex
	lastIOTime uint64
	lastIOAt   time.Time
}

// NewAdapter creates an adapter measuring the root filesystem.
func NewAdapter() *Adapter {
	return &Adapter{DiskPath: "/"}
}

// Snapshot implements metrics.Source. A failure reading any of the four
// core metrics fails the whole snapshot; optional metrics never do.
func (a *Adapter) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	snap := metrics.Snapshot{}

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("read cpu: %w", err)
	}
	if len(cpuPercents) > 0 {
		snap[metrics.CPUPercent] = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	snap[metrics.MemoryPercent] = vm.UsedPercent

	usage, err := disk.UsageWithContext(ctx, a.DiskPath)
	if err != nil {
		return nil, fmt.Errorf("read disk usage for %s: %w", a.DiskPath, err)
	}
	snap[metrics.DiskPercent] = usage.UsedPercent

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read load average: %w", err)
	}
	snap[metrics.Load1Min] = avg.Load1

	if temp, ok := a.readTemperature(ctx); ok {
		snap[metrics.TemperatureC] = temp
	}
	if busy, ok := a.readDiskBusy(ctx); ok {
		snap[metrics.DiskIO] = busy
	}

	return snap, nil
}

// readTemperature reports the hottest sensor on the host.
func (a *Adapter) readTemperature(ctx context.Context) (float64, bool) {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil || len(temps) == 0 {
		return 0, false
	}

	var hottest float64
	found := false
	for _, t := range temps {
		if t.Temperature > hottest {
			hottest = t.Temperature
			found = true
		}
	}
	return hottest, found
}

// readDiskBusy derives a utilization percentage from the io-time delta
// between consecutive snapshots. The first call primes the counter and
// reports nothing.
func (a *Adapter) readDiskBusy(ctx context.Context) (float64, bool) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil || len(counters) == 0 {
		return 0, false
	}

	var ioTime uint64
	for _, c := range counters {
		ioTime += c.IoTime
	}
	now := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	prevTime, prevAt := a.lastIOTime, a.lastIOAt
	a.lastIOTime, a.lastIOAt = ioTime, now

	if prevAt.IsZero() || ioTime < prevTime {
		return 0, false
	}

	elapsed := now.Sub(prevAt)
	if elapsed <= 0 {
		return 0, false
	}

	// IoTime is milliseconds the device spent doing io.
	busy := float64(ioTime-prevTime) / float64(elapsed.Milliseconds()) * 100
	if busy > 100 {
		busy = 100
	}
	return busy, true
}
