package metrics

import (
	"context"
	"time"
)

// Well-known metric names produced by the bundled adapters. The engine
// tracks these four by default; adapters may report more.
const (
	CPUPercent    = "cpu_percent"
	MemoryPercent = "memory_percent"
	DiskPercent   = "disk_percent"
	Load1Min      = "load_1min"
	TemperatureC  = "temperature_c"
	DiskIO        = "disk_io"
)

// Snapshot is one cycle's worth of metric values keyed by metric name.
// A missing key reads as zero, which is the engine-wide convention for
// "metric not reported this cycle".
type Snapshot map[string]float64

// Value returns the value for name, or 0 if the metric is absent.
func (s Snapshot) Value(name string) float64 {
	return s[name]
}

// Has reports whether the metric was present in this snapshot.
func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sample is a single observed metric value.
type Sample struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// Source supplies metric snapshots. Implementations live under
// internal/adapter; the engine never cares where the numbers come from.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}
