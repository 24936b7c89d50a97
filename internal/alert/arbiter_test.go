package alert

import (
	"math"
	"testing"
	"time"
)

// offHours is a fixed clock outside the business-hours bonus window.
var offHours = time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)

func newTestArbiter(at time.Time) (*Arbiter, *time.Time) {
	a := New(Config{})
	current := at
	a.SetClock(func() time.Time { return current })
	return a, &current
}

func TestDecide_EmitsWithBasePriority(t *testing.T) {
	tests := []struct {
		alertType string
		expected  Priority
	}{
		{TypeCriticalSystem, PriorityHigh},
		{TypeHighCPU, PriorityMedium},
		{TypeHighMemory, PriorityMedium},
		{TypeHighDisk, PriorityHigh},
		{TypeAnomalyDetected, PriorityLow},
		{TypePredictiveWarning, PriorityLow},
		{"never_seen_before", PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.alertType, func(t *testing.T) {
			a, _ := newTestArbiter(offHours)

			d := a.Decide(tt.alertType, nil)

			if !d.ShouldAlert {
				t.Fatalf("expected emit, got %+v", d)
			}
			if d.Priority != tt.expected {
				t.Errorf("expected priority %s, got %s", tt.expected, d.Priority)
			}
			if d.Reason != ReasonAccepted {
				t.Errorf("expected reason %s, got %s", ReasonAccepted, d.Reason)
			}
		})
	}
}

func TestDecide_StormProtectionBoundary(t *testing.T) {
	a, current := newTestArbiter(offHours)

	// Six emits inside the lookback: call N sees N-1 prior records, so
	// even the sixth (5 prior, not >5) must go through.
	for i := 0; i < 6; i++ {
		*current = current.Add(10 * time.Second)
		d := a.Decide(TypeHighCPU, nil)
		if !d.ShouldAlert {
			t.Fatalf("call %d suppressed prematurely: %+v", i+1, d)
		}
	}

	// Seventh call sees 6 prior records: storm.
	*current = current.Add(10 * time.Second)
	d := a.Decide(TypeHighCPU, nil)
	if d.ShouldAlert {
		t.Fatal("expected storm protection on 7th call")
	}
	if d.Reason != ReasonStormProtection {
		t.Errorf("expected reason %s, got %s", ReasonStormProtection, d.Reason)
	}
	wantUntil := current.Add(30 * time.Minute)
	if !d.SuppressUntil.Equal(wantUntil) {
		t.Errorf("expected suppression until %v, got %v", wantUntil, d.SuppressUntil)
	}

	// The type is now registered as suppressed.
	d = a.Decide(TypeHighCPU, nil)
	if d.ShouldAlert || d.Reason != ReasonSuppressed {
		t.Errorf("expected suppressed follow-up, got %+v", d)
	}

	// Other types are unaffected.
	d = a.Decide(TypeHighDisk, nil)
	if !d.ShouldAlert {
		t.Errorf("unrelated type caught in storm suppression: %+v", d)
	}
}

func TestDecide_StormLookbackExcludesOldRecords(t *testing.T) {
	a, current := newTestArbiter(offHours)

	// Six old emits, then jump past the lookback window.
	for i := 0; i < 6; i++ {
		a.Decide(TypeHighCPU, nil)
	}
	*current = current.Add(6 * time.Minute)

	d := a.Decide(TypeHighCPU, nil)
	if !d.ShouldAlert {
		t.Errorf("records outside the lookback must not count: %+v", d)
	}
}

func TestDecide_LazyExpiryIsIdempotent(t *testing.T) {
	a, current := newTestArbiter(offHours)

	a.Suppress(TypeHighMemory, current.Add(-time.Minute))

	// Two consecutive calls after expiry must both evaluate fresh.
	for i := 0; i < 2; i++ {
		d := a.Decide(TypeHighMemory, nil)
		if !d.ShouldAlert {
			t.Fatalf("call %d after expiry was suppressed: %+v", i+1, d)
		}
	}
}

func TestDecide_CorrelationScore(t *testing.T) {
	businessHours := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		alertType string
		context   map[string]float64
		at        time.Time
		expected  float64
	}{
		{
			name:      "no signals",
			alertType: TypeHighDisk,
			at:        offHours,
			expected:  1.0,
		},
		{
			name:      "high cpu with memory pressure",
			alertType: TypeHighCPU,
			context:   map[string]float64{"memory_percent": 85},
			at:        offHours,
			expected:  1.3,
		},
		{
			name:      "high cpu with memory pressure in business hours",
			alertType: TypeHighCPU,
			context:   map[string]float64{"memory_percent": 85},
			at:        businessHours,
			expected:  1.4,
		},
		{
			name:      "high memory with disk io",
			alertType: TypeHighMemory,
			context:   map[string]float64{"disk_io": 60},
			at:        offHours,
			expected:  1.2,
		},
		{
			name:      "business hours alone",
			alertType: TypeHighMemory,
			at:        businessHours,
			expected:  1.1,
		},
		{
			name:      "memory threshold is strict",
			alertType: TypeHighCPU,
			context:   map[string]float64{"memory_percent": 80},
			at:        offHours,
			expected:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestArbiter(tt.at)

			d := a.Decide(tt.alertType, tt.context)

			// Scores accumulate additively, so compare with a tolerance.
			if math.Abs(d.CorrelationScore-tt.expected) > 1e-9 {
				t.Errorf("expected score %.2f, got %v", tt.expected, d.CorrelationScore)
			}
		})
	}
}

func TestEscalate(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		score    float64
		expected Priority
	}{
		{"exactly at threshold does not escalate", PriorityMedium, 1.5, PriorityMedium},
		{"strictly above escalates medium", PriorityMedium, 1.51, PriorityHigh},
		{"strictly above escalates low", PriorityLow, 1.6, PriorityMedium},
		{"high has no higher band", PriorityHigh, 2.0, PriorityHigh},
		{"critical unchanged", PriorityCritical, 2.0, PriorityCritical},
		{"below threshold unchanged", PriorityLow, 1.2, PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escalate(tt.priority, tt.score, 1.5); got != tt.expected {
				t.Errorf("escalate(%s, %.2f) = %s, expected %s", tt.priority, tt.score, got, tt.expected)
			}
		})
	}
}

func TestDecide_SuppressionDurationByPriority(t *testing.T) {
	tests := []struct {
		alertType string
		duration  time.Duration
	}{
		{TypeHighDisk, 900 * time.Second},         // high
		{TypeHighCPU, 1800 * time.Second},         // medium
		{TypeAnomalyDetected, 3600 * time.Second}, // low
	}

	for _, tt := range tests {
		t.Run(tt.alertType, func(t *testing.T) {
			a, current := newTestArbiter(offHours)

			d := a.Decide(tt.alertType, nil)

			want := current.Add(tt.duration)
			if !d.SuppressUntil.Equal(want) {
				t.Errorf("expected suppressUntil %v, got %v", want, d.SuppressUntil)
			}
		})
	}
}

func TestHistory_FIFOEviction(t *testing.T) {
	a, current := newTestArbiter(offHours)

	// Spread distinct types over time so neither storm protection nor
	// suppression interferes with filling the history.
	types := []string{TypeHighCPU, TypeHighMemory, TypeHighDisk, TypeCriticalSystem, TypeAnomalyDetected}
	for i := 0; i < 150; i++ {
		*current = current.Add(2 * time.Minute)
		a.Decide(types[i%len(types)], nil)
	}

	if got := len(a.History()); got != DefaultConfig().HistorySize {
		t.Errorf("expected history capped at %d, got %d", DefaultConfig().HistorySize, got)
	}
}
