package config

import (
	"fmt"
	"time"
)

// Config holds server configuration
type Config struct {
	// Server settings
	Port int
	Host string

	// Profile settings
	ProfileDirectory string
	SchemaPath       string

	// Metrics adapter settings
	AdapterType   string // "system", "prometheus" or "synthetic"
	PrometheusURL string
	FixturePath   string

	// Audit storage settings. Empty disables persistence.
	AuditDBPath string

	// Operational settings
	GracefulShutdownTimeout time.Duration
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.ProfileDirectory == "" {
		return fmt.Errorf("profile directory is required")
	}

	switch c.AdapterType {
	case "system":
	case "prometheus":
		if c.PrometheusURL == "" {
			return fmt.Errorf("Prometheus URL required when adapter type is 'prometheus'")
		}
	case "synthetic":
		if c.FixturePath == "" {
			return fmt.Errorf("fixture path required when adapter type is 'synthetic'")
		}
	default:
		return fmt.Errorf("adapter type must be 'system', 'prometheus' or 'synthetic'")
	}

	return nil
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Port:                    8080,
		Host:                    "0.0.0.0",
		SchemaPath:              "schemas/profile_v1.json",
		AdapterType:             "system",
		GracefulShutdownTimeout: 30 * time.Second,
	}
}
