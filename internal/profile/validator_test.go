package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validProfile = `apiVersion: vigil/v1
kind: MonitorProfile
metadata:
  id: web-01
  host: web-01.example.com
  description: primary web host
spec:
  checkInterval: 60s
  cacheTTL: 30s
  sensitivity: 2.0
  windowSize: 100
  minSamples: 10
  autoRecovery:
    enabled: true
    actionTimeout: 5s
  thresholds:
    cpu_percent: {warning: 80, critical: 95}
    memory_percent: {warning: 80, critical: 95}
    disk_percent: {warning: 80, critical: 95}
  trend:
    slopeThreshold: 1.0
    businessHours: {start: 9, end: 17}
`

const missingFieldsProfile = `apiVersion: vigil/v1
kind: MonitorProfile
metadata:
  id: broken-01
  host: broken.example.com
spec:
  cacheTTL: 30s
`

const invertedThresholdProfile = `apiVersion: vigil/v1
kind: MonitorProfile
metadata:
  id: inverted-01
  host: inverted.example.com
spec:
  checkInterval: 60s
  thresholds:
    cpu_percent: {warning: 95, critical: 80}
`

func mustNewValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(filepath.Join("..", "..", "schemas", "profile_v1.json"))
	if err != nil {
		t.Fatalf("failed to create validator: %v", err)
	}
	return v
}

func writeProfiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func hasErrorContaining(errors []ValidationError, substrings ...string) bool {
	for _, err := range errors {
		all := true
		for _, sub := range substrings {
			if !strings.Contains(err.Message, sub) && !strings.Contains(err.Path, sub) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func TestValidator_ValidProfile(t *testing.T) {
	v := mustNewValidator(t)
	dir := writeProfiles(t, map[string]string{"web-01.yaml": validProfile})

	errors := v.ValidateDirectory(dir)

	if len(errors) != 0 {
		t.Errorf("expected no errors, got %d:", len(errors))
		for _, err := range errors {
			t.Logf("  %v", err)
		}
	}
}

func TestValidator_MissingRequiredFields(t *testing.T) {
	v := mustNewValidator(t)
	dir := writeProfiles(t, map[string]string{"broken.yaml": missingFieldsProfile})

	errors := v.ValidateDirectory(dir)

	if len(errors) == 0 {
		t.Fatal("expected validation errors, got none")
	}
	if !hasErrorContaining(errors, "checkInterval") && !hasErrorContaining(errors, "thresholds") {
		t.Errorf("expected missing-field errors, got: %v", errors)
	}
}

func TestValidator_InvertedThresholds(t *testing.T) {
	v := mustNewValidator(t)
	dir := writeProfiles(t, map[string]string{"inverted.yaml": invertedThresholdProfile})

	errors := v.ValidateDirectory(dir)

	if !hasErrorContaining(errors, "warning threshold") {
		t.Errorf("expected inverted-threshold error, got: %v", errors)
	}
}

func TestValidator_DuplicateIDs(t *testing.T) {
	v := mustNewValidator(t)
	dup := strings.Replace(validProfile, "host: web-01.example.com", "host: web-02.example.com", 1)
	dir := writeProfiles(t, map[string]string{
		"a.yaml": validProfile,
		"b.yaml": dup,
	})

	errors := v.ValidateDirectory(dir)

	if !hasErrorContaining(errors, "duplicate") {
		t.Errorf("expected duplicate-ID error, got: %v", errors)
	}
}

func TestValidator_BadDuration(t *testing.T) {
	v := mustNewValidator(t)
	bad := strings.Replace(validProfile, "checkInterval: 60s", "checkInterval: sixty", 1)
	dir := writeProfiles(t, map[string]string{"bad.yaml": bad})

	errors := v.ValidateDirectory(dir)

	if len(errors) == 0 {
		t.Fatal("expected errors for malformed duration")
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	p := &Profile{}
	p.Normalize()

	if p.Spec.Sensitivity != DefaultSensitivity {
		t.Errorf("expected sensitivity %.1f, got %.1f", DefaultSensitivity, p.Spec.Sensitivity)
	}
	if p.Spec.WindowSize != DefaultWindowSize {
		t.Errorf("expected window size %d, got %d", DefaultWindowSize, p.Spec.WindowSize)
	}
	if p.Spec.MinSamples != DefaultMinSamples {
		t.Errorf("expected min samples %d, got %d", DefaultMinSamples, p.Spec.MinSamples)
	}
	if !p.AutoRecoveryEnabled() {
		t.Error("auto recovery must default to enabled")
	}
	if p.Spec.Trend.BusinessHours.Start != 9 || p.Spec.Trend.BusinessHours.End != 17 {
		t.Errorf("unexpected business hours default: %+v", p.Spec.Trend.BusinessHours)
	}
	if p.CriticalFor("cpu_percent") != DefaultCriticalPercent {
		t.Errorf("expected fallback critical %d, got %.0f", DefaultCriticalPercent, p.CriticalFor("cpu_percent"))
	}
}

func TestLoadFromDirectory_CollectsParseErrors(t *testing.T) {
	dir := writeProfiles(t, map[string]string{
		"ok.yaml":     validProfile,
		"broken.yaml": "{{ not yaml",
	})

	profiles, errors := LoadFromDirectory(dir)

	if len(profiles) != 1 {
		t.Errorf("expected 1 parsed profile, got %d", len(profiles))
	}
	if len(errors) != 1 {
		t.Errorf("expected 1 parse error, got %d", len(errors))
	}
}
