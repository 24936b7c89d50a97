package trend

import (
	"math"
	"testing"
)

func record(e *Estimator, metric string, values ...float64) {
	for _, v := range values {
		e.Record(metric, v)
	}
}

func TestEstimate_StrictlyIncreasingSeries(t *testing.T) {
	e := New(Config{})
	record(e, "cpu_percent", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	est := e.Estimate("cpu_percent")

	if math.Abs(est.Slope-1.0) > 1e-9 {
		t.Errorf("expected slope 1.0, got %f", est.Slope)
	}
	if est.Direction != DirectionIncreasing {
		t.Errorf("expected increasing, got %s", est.Direction)
	}
}

func TestEstimate_BoundarySlopeClassifiesDirection(t *testing.T) {
	// A slope exactly at the threshold is directional, not stable: the
	// unit-step series fits to precisely +/-1.0.
	e := New(Config{})
	record(e, "cpu_percent", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	record(e, "memory_percent", 10, 9, 8, 7, 6, 5, 4, 3, 2, 1)

	if got := e.Estimate("cpu_percent"); got.Direction != DirectionIncreasing {
		t.Errorf("slope %f at threshold: expected increasing, got %s", got.Slope, got.Direction)
	}
	if got := e.Estimate("memory_percent"); got.Direction != DirectionDecreasing {
		t.Errorf("slope %f at threshold: expected decreasing, got %s", got.Slope, got.Direction)
	}
}

func TestEstimate_ConstantSeries(t *testing.T) {
	e := New(Config{})
	record(e, "memory_percent", 50, 50, 50, 50, 50, 50, 50, 50)

	est := e.Estimate("memory_percent")

	if est.Slope != 0 {
		t.Errorf("expected slope 0, got %f", est.Slope)
	}
	if est.Direction != DirectionStable {
		t.Errorf("expected stable, got %s", est.Direction)
	}
}

func TestEstimate_DecreasingSeries(t *testing.T) {
	e := New(Config{})
	record(e, "disk_percent", 90, 85, 80, 75, 70, 65)

	est := e.Estimate("disk_percent")

	if est.Direction != DirectionDecreasing {
		t.Errorf("expected decreasing, got %s (slope %f)", est.Direction, est.Slope)
	}
}

func TestEstimate_TooFewPointsIsStable(t *testing.T) {
	e := New(Config{})
	record(e, "cpu_percent", 10, 90, 10, 90)

	est := e.Estimate("cpu_percent")

	if est.Direction != DirectionStable || est.Slope != 0 {
		t.Errorf("expected stable/0 below min points, got %s/%f", est.Direction, est.Slope)
	}
}

func TestEstimate_UsesOnlyTrailingPoints(t *testing.T) {
	e := New(Config{})

	// Long flat prefix followed by a steep recent climb: the fit must see
	// only the trailing 10 points.
	for i := 0; i < 50; i++ {
		e.Record("cpu_percent", 20)
	}
	record(e, "cpu_percent", 30, 35, 40, 45, 50, 55, 60, 65, 70, 75)

	est := e.Estimate("cpu_percent")

	if est.Direction != DirectionIncreasing {
		t.Errorf("expected increasing over trailing points, got %s", est.Direction)
	}
	if math.Abs(est.Slope-5.0) > 1e-9 {
		t.Errorf("expected slope 5.0 over trailing 10 points, got %f", est.Slope)
	}
}

func TestRecord_HistoryFIFOEviction(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)

	for i := 0; i < cfg.HistorySize+50; i++ {
		e.Record("load_1min", float64(i))
	}

	e.mu.Lock()
	got := len(e.history["load_1min"])
	e.mu.Unlock()

	if got != cfg.HistorySize {
		t.Errorf("expected history capped at %d, got %d", cfg.HistorySize, got)
	}
}

func TestForecast(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		current    float64
		critical   float64
		expectOK   bool
		expectETA  int
	}{
		{
			name:      "increasing above floor",
			values:    []float64{60, 64, 68, 72, 76, 80},
			current:   80,
			critical:  95,
			expectOK:  true,
			expectETA: 4, // (95-80)/4 = 3.75, rounded
		},
		{
			name:     "increasing but below floor",
			values:   []float64{10, 14, 18, 22, 26, 30},
			current:  30,
			critical: 95,
			expectOK: false,
		},
		{
			name:     "stable never predicts",
			values:   []float64{80, 80, 80, 80, 80, 80},
			current:  80,
			critical: 95,
			expectOK: false,
		},
		{
			name:      "already at threshold clamps to one minute",
			values:    []float64{70, 75, 80, 85, 90, 95},
			current:   96,
			critical:  95,
			expectOK:  true,
			expectETA: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{})
			record(e, "cpu_percent", tt.values...)

			issue, ok := e.Forecast("cpu_percent", tt.current, tt.critical)

			if ok != tt.expectOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.expectOK, ok, issue)
			}
			if !ok {
				return
			}
			if issue.ETAMinutes != tt.expectETA {
				t.Errorf("expected ETA %d, got %d", tt.expectETA, issue.ETAMinutes)
			}
			if issue.Type != PredictedIssueType {
				t.Errorf("expected type %s, got %s", PredictedIssueType, issue.Type)
			}
			if issue.Severity != "warning" {
				t.Errorf("expected severity warning, got %s", issue.Severity)
			}
		})
	}
}
