package profile

// Profile is a parsed monitor profile: which host this engine instance
// watches and how sensitive its analysis should be.
type Profile struct {
	APIVersion string   `yaml:"apiVersion" json:"apiVersion"`
	Kind       string   `yaml:"kind" json:"kind"`
	Metadata   Metadata `yaml:"metadata" json:"metadata"`
	Spec       Spec     `yaml:"spec" json:"spec"`
}

// Metadata identifies a profile.
type Metadata struct {
	ID          string `yaml:"id" json:"id"`
	Host        string `yaml:"host" json:"host"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Spec carries the tunables for one monitored host.
type Spec struct {
	CheckInterval string               `yaml:"checkInterval" json:"checkInterval"`
	CacheTTL      string               `yaml:"cacheTTL,omitempty" json:"cacheTTL,omitempty"`
	Sensitivity   float64              `yaml:"sensitivity,omitempty" json:"sensitivity,omitempty"`
	WindowSize    int                  `yaml:"windowSize,omitempty" json:"windowSize,omitempty"`
	MinSamples    int                  `yaml:"minSamples,omitempty" json:"minSamples,omitempty"`
	AutoRecovery  AutoRecovery         `yaml:"autoRecovery,omitempty" json:"autoRecovery,omitempty"`
	Thresholds    map[string]Threshold `yaml:"thresholds" json:"thresholds"`
	Trend         Trend                `yaml:"trend,omitempty" json:"trend,omitempty"`
}

// AutoRecovery configures the recovery dispatcher. Enabled is a pointer so
// an omitted field can default to true.
type AutoRecovery struct {
	Enabled       *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	ActionTimeout string `yaml:"actionTimeout,omitempty" json:"actionTimeout,omitempty"`
}

// Threshold is a warning/critical pair for one metric.
type Threshold struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// Trend tunes trend classification. The slope threshold is a unit-per-sample
// rate calibrated for 0-100 scaled metrics.
type Trend struct {
	SlopeThreshold float64       `yaml:"slopeThreshold,omitempty" json:"slopeThreshold,omitempty"`
	BusinessHours  BusinessHours `yaml:"businessHours,omitempty" json:"businessHours,omitempty"`
}

// BusinessHours is the inclusive local-hour range that earns the
// business-hours correlation bonus.
type BusinessHours struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// Defaults applied by Normalize.
const (
	DefaultCheckInterval    = "60s"
	DefaultCacheTTL         = "30s"
	DefaultSensitivity      = 2.0
	DefaultWindowSize       = 100
	DefaultMinSamples       = 10
	DefaultActionTimeout    = "5s"
	DefaultSlopeThreshold   = 1.0
	DefaultWarningPercent   = 80
	DefaultCriticalPercent  = 95
	DefaultBusinessHourFrom = 9
	DefaultBusinessHourTo   = 17
)

// Normalize fills omitted fields with the engine defaults. It is safe to
// call more than once.
func (p *Profile) Normalize() {
	s := &p.Spec
	if s.CheckInterval == "" {
		s.CheckInterval = DefaultCheckInterval
	}
	if s.CacheTTL == "" {
		s.CacheTTL = DefaultCacheTTL
	}
	if s.Sensitivity <= 0 {
		s.Sensitivity = DefaultSensitivity
	}
	if s.WindowSize <= 0 {
		s.WindowSize = DefaultWindowSize
	}
	if s.MinSamples <= 0 {
		s.MinSamples = DefaultMinSamples
	}
	if s.AutoRecovery.ActionTimeout == "" {
		s.AutoRecovery.ActionTimeout = DefaultActionTimeout
	}
	if s.Trend.SlopeThreshold <= 0 {
		s.Trend.SlopeThreshold = DefaultSlopeThreshold
	}
	if s.Trend.BusinessHours.Start == 0 && s.Trend.BusinessHours.End == 0 {
		s.Trend.BusinessHours = BusinessHours{Start: DefaultBusinessHourFrom, End: DefaultBusinessHourTo}
	}
	if s.Thresholds == nil {
		s.Thresholds = make(map[string]Threshold)
	}
}

// AutoRecoveryEnabled reports the recovery toggle, defaulting to true when
// the field was omitted.
func (p *Profile) AutoRecoveryEnabled() bool {
	if p.Spec.AutoRecovery.Enabled == nil {
		return true
	}
	return *p.Spec.AutoRecovery.Enabled
}

// CriticalFor returns the critical threshold for a metric, falling back to
// the stock 95 when the profile does not pin one.
func (p *Profile) CriticalFor(metric string) float64 {
	if th, ok := p.Spec.Thresholds[metric]; ok && th.Critical > 0 {
		return th.Critical
	}
	return DefaultCriticalPercent
}

// WarningFor returns the warning threshold for a metric, falling back to
// the stock 80.
func (p *Profile) WarningFor(metric string) float64 {
	if th, ok := p.Spec.Thresholds[metric]; ok && th.Warning > 0 {
		return th.Warning
	}
	return DefaultWarningPercent
}

// ProfileWithFile pairs a profile with its source file path.
type ProfileWithFile struct {
	Profile *Profile
	File    string
}

// ValidationError represents a validation error for a specific file.
type ValidationError struct {
	File    string
	Path    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return e.File + ": " + e.Path + ": " + e.Message
	}
	return e.File + ": " + e.Message
}
