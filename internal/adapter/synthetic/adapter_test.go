package synthetic

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vigilhq/vigil/internal/metrics"
)

func TestSnapshot_CyclesThroughFrames(t *testing.T) {
	a := NewAdapter()
	a.SetFrames([]map[string]float64{
		{metrics.CPUPercent: 10},
		{metrics.CPUPercent: 20},
	})

	ctx := context.Background()

	first, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Value(metrics.CPUPercent) != 10 {
		t.Errorf("expected 10, got %v", first.Value(metrics.CPUPercent))
	}

	second, _ := a.Snapshot(ctx)
	if second.Value(metrics.CPUPercent) != 20 {
		t.Errorf("expected 20, got %v", second.Value(metrics.CPUPercent))
	}

	// Wraps back to the first frame.
	third, _ := a.Snapshot(ctx)
	if third.Value(metrics.CPUPercent) != 10 {
		t.Errorf("expected wrap to 10, got %v", third.Value(metrics.CPUPercent))
	}
}

func TestSnapshot_NoFixtureLoaded(t *testing.T) {
	a := NewAdapter()
	if _, err := a.Snapshot(context.Background()); err == nil {
		t.Error("expected error with no fixture loaded")
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.json")
	content := `{"frames": [{"cpu_percent": 42.5, "memory_percent": 60}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	a := NewAdapter()
	if err := a.LoadFixture(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := a.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Value(metrics.CPUPercent) != 42.5 {
		t.Errorf("expected 42.5, got %v", snap.Value(metrics.CPUPercent))
	}
	if !snap.Has(metrics.MemoryPercent) {
		t.Error("expected memory_percent in snapshot")
	}
}

func TestLoadFixture_EmptyFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"frames": []}`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	a := NewAdapter()
	if err := a.LoadFixture(path); err == nil {
		t.Error("expected error for empty fixture")
	}
}
