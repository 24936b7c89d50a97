package synthetic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vigilhq/vigil/internal/metrics"
)

// Fixture is the JSON format for replayed metrics: an ordered list of
// frames, each one full snapshot. Playback wraps around at the end.
type Fixture struct {
	Frames []map[string]float64 `json:"frames"`
}

// Adapter replays metric snapshots from a fixture. It backs demos and
// tests that need deterministic metric sequences without a live host.
type Adapter struct {
	mu     sync.Mutex
	frames []map[string]float64
	next   int
}

// NewAdapter creates an empty synthetic adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// LoadFixture loads frames from a JSON fixture file.
func (a *Adapter) LoadFixture(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	if len(fixture.Frames) == 0 {
		return fmt.Errorf("fixture %s has no frames", path)
	}

	a.mu.Lock()
	a.frames = fixture.Frames
	a.next = 0
	a.mu.Unlock()
	return nil
}

// SetFrames directly sets the frame sequence (useful for testing).
func (a *Adapter) SetFrames(frames []map[string]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = frames
	a.next = 0
}

// Snapshot implements metrics.Source, returning the next frame in the
// sequence and wrapping around after the last one.
func (a *Adapter) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.frames) == 0 {
		return nil, fmt.Errorf("no fixture loaded")
	}

	frame := a.frames[a.next]
	a.next = (a.next + 1) % len(a.frames)

	snap := make(metrics.Snapshot, len(frame))
	for name, value := range frame {
		snap[name] = value
	}
	return snap, nil
}
