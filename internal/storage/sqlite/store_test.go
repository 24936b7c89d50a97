package sqlite

import (
	"os"
	"testing"
	"time"

	"github.com/vigilhq/vigil/internal/alert"
	"github.com/vigilhq/vigil/internal/health"
	"github.com/vigilhq/vigil/internal/metrics"
	"github.com/vigilhq/vigil/internal/profile"
	"github.com/vigilhq/vigil/internal/storage"
)

func setupTestDB(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create temp database file
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpfile.Close()

	store, err := NewStore(tmpfile.Name())
	if err != nil {
		os.Remove(tmpfile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpfile.Name())
	}

	return store, cleanup
}

func testProfile(id string) *profile.Profile {
	p := &profile.Profile{
		APIVersion: "vigil/v1",
		Kind:       "MonitorProfile",
		Metadata: profile.Metadata{
			ID:   id,
			Host: id + ".example.com",
		},
	}
	p.Normalize()
	return p
}

func testReport(status health.Status, at time.Time) *health.Report {
	return &health.Report{
		Status: status,
		Issues: []health.Issue{
			{Metric: metrics.CPUPercent, Severity: "critical", Value: 97, Threshold: 95},
		},
		Metrics: metrics.Snapshot{metrics.CPUPercent: 97},
		Alerts: []alert.Decision{
			{ShouldAlert: true, AlertType: alert.TypeHighCPU, Priority: alert.PriorityMedium},
		},
		GeneratedAt: at,
	}
}

func TestStore_StoreProfileDefinition(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.StoreProfileDefinition(testProfile("web-01")); err != nil {
		t.Fatalf("failed to store profile definition: %v", err)
	}

	// Upsert on re-store rather than erroring.
	if err := store.StoreProfileDefinition(testProfile("web-01")); err != nil {
		t.Fatalf("failed to re-store profile definition: %v", err)
	}
}

func TestStore_StoreReport(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.StoreProfileDefinition(testProfile("web-01")); err != nil {
		t.Fatalf("failed to store profile definition: %v", err)
	}

	err := store.StoreReport("web-01", testReport(health.StatusCritical, time.Now()))
	if err != nil {
		t.Fatalf("failed to store report: %v", err)
	}
}

func TestStore_StoreReport_UnknownProfile(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	err := store.StoreReport("ghost", testReport(health.StatusHealthy, time.Now()))
	if err == nil {
		t.Error("expected error storing report for unknown profile")
	}
}

func TestStore_QueryAudit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.StoreProfileDefinition(testProfile("web-01")); err != nil {
		t.Fatalf("failed to store profile definition: %v", err)
	}

	base := time.Now()
	statuses := []health.Status{health.StatusHealthy, health.StatusWarning, health.StatusCritical}
	for i, status := range statuses {
		report := testReport(status, base.Add(time.Duration(i)*time.Minute))
		if err := store.StoreReport("web-01", report); err != nil {
			t.Fatalf("failed to store report: %v", err)
		}
	}

	// Query all reports
	records, err := store.QueryAudit(storage.AuditFilter{Limit: 10})
	if err != nil {
		t.Fatalf("failed to query audit: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}

	// Newest first
	if len(records) == 3 && records[0].Status != string(health.StatusCritical) {
		t.Errorf("expected newest record first, got status %s", records[0].Status)
	}

	// Query by profile ID
	records, err = store.QueryAudit(storage.AuditFilter{ProfileID: "web-01", Limit: 10})
	if err != nil {
		t.Fatalf("failed to query audit by profile ID: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records for web-01, got %d", len(records))
	}

	// Query by status
	records, err = store.QueryAudit(storage.AuditFilter{Status: "critical", Limit: 10})
	if err != nil {
		t.Fatalf("failed to query audit by status: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 critical record, got %d", len(records))
	}

	// The stored report round-trips.
	if len(records) == 1 {
		r := records[0]
		if r.Report == nil {
			t.Fatal("expected embedded report")
		}
		if r.Report.Metrics.Value(metrics.CPUPercent) != 97 {
			t.Errorf("expected cpu 97 in stored report, got %v", r.Report.Metrics.Value(metrics.CPUPercent))
		}
		if r.IssueCount != 1 || r.AlertCount != 1 {
			t.Errorf("unexpected counts: issues=%d alerts=%d", r.IssueCount, r.AlertCount)
		}
	}

	// Query by host
	records, err = store.QueryAudit(storage.AuditFilter{Host: "web-01.example.com", Limit: 10})
	if err != nil {
		t.Fatalf("failed to query audit by host: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records for host, got %d", len(records))
	}
}

func TestStore_UpdateLatestState(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.StoreProfileDefinition(testProfile("web-01")); err != nil {
		t.Fatalf("failed to store profile definition: %v", err)
	}

	first := testReport(health.StatusWarning, time.Now())
	if err := store.UpdateLatestState("web-01", first); err != nil {
		t.Fatalf("failed to update latest state: %v", err)
	}

	second := testReport(health.StatusCritical, time.Now().Add(time.Minute))
	if err := store.UpdateLatestState("web-01", second); err != nil {
		t.Fatalf("failed to update latest state: %v", err)
	}

	state, err := store.GetLatestState("web-01")
	if err != nil {
		t.Fatalf("failed to get latest state: %v", err)
	}
	if state == nil {
		t.Fatal("expected state to be non-nil")
	}

	if state.ProfileID != "web-01" {
		t.Errorf("expected ProfileID=web-01, got %s", state.ProfileID)
	}
	if state.Status != string(health.StatusCritical) {
		t.Errorf("expected latest status critical, got %s", state.Status)
	}
	if state.Report == nil || state.Report.Status != health.StatusCritical {
		t.Error("expected embedded report with critical status")
	}
}

func TestStore_GetLatestState_NotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	state, err := store.GetLatestState("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state != nil {
		t.Error("expected nil state for nonexistent profile")
	}
}
