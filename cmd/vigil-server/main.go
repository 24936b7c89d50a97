package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vigilhq/vigil/internal/adapter/prometheus"
	"github.com/vigilhq/vigil/internal/adapter/synthetic"
	"github.com/vigilhq/vigil/internal/adapter/system"
	"github.com/vigilhq/vigil/internal/api"
	"github.com/vigilhq/vigil/internal/config"
	"github.com/vigilhq/vigil/internal/health"
	"github.com/vigilhq/vigil/internal/metrics"
	"github.com/vigilhq/vigil/internal/recovery"
	"github.com/vigilhq/vigil/internal/storage"
	"github.com/vigilhq/vigil/internal/storage/sqlite"
)

func main() {
	cfg := parseFlags()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting Vigil server...")
	log.Printf("Config: port=%d, profile-dir=%s, adapter=%s", cfg.Port, cfg.ProfileDirectory, cfg.AdapterType)

	// Create metrics adapter
	var source metrics.Source
	switch cfg.AdapterType {
	case "system":
		source = system.NewAdapter()
		log.Printf("Using system adapter")

	case "prometheus":
		promConfig := prometheus.DefaultConfig(cfg.PrometheusURL)
		source = prometheus.NewAdapter(promConfig)
		log.Printf("Using Prometheus adapter: %s", cfg.PrometheusURL)

	case "synthetic":
		adapter := synthetic.NewAdapter()
		if err := adapter.LoadFixture(cfg.FixturePath); err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		source = adapter
		log.Printf("Using synthetic adapter with fixture: %s", cfg.FixturePath)

	default:
		log.Fatalf("Unknown adapter type: %s", cfg.AdapterType)
	}

	// Create monitor
	monitor := health.NewMonitor(source, recovery.NewSystemExecutor(), cfg.ProfileDirectory)

	// Open audit storage if configured
	var audit storage.AuditStorage
	if cfg.AuditDBPath != "" {
		store, err := sqlite.NewStore(cfg.AuditDBPath)
		if err != nil {
			log.Fatalf("Failed to open audit storage: %v", err)
		}
		defer store.Close()
		audit = store
		monitor.SetAuditSink(store)
		log.Printf("Audit storage: %s", cfg.AuditDBPath)
	}

	// Load profiles
	if err := monitor.LoadProfiles(cfg.SchemaPath); err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}

	// Persist profile definitions so reports can reference them
	if audit != nil {
		for _, p := range monitor.Profiles() {
			if err := audit.StoreProfileDefinition(p); err != nil {
				log.Printf("Warning: failed to store profile definition %s: %v", p.Metadata.ID, err)
			}
		}
	}

	// Start monitor
	if err := monitor.Start(); err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}

	// Create and start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	apiServer := api.NewServer(monitor, audit, addr)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- apiServer.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
		defer cancel()

		log.Println("Shutting down server...")
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}

		log.Println("Stopping monitor...")
		monitor.Stop()

		log.Println("Shutdown complete")
	}
}

func parseFlags() config.Config {
	cfg := config.DefaultConfig()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "HTTP server host")
	flag.StringVar(&cfg.ProfileDirectory, "profile-dir", cfg.ProfileDirectory, "Directory containing monitor profile YAML files")
	flag.StringVar(&cfg.SchemaPath, "schema", cfg.SchemaPath, "Path to the profile JSON schema")
	flag.StringVar(&cfg.AdapterType, "adapter", cfg.AdapterType, "Metrics adapter type (system|prometheus|synthetic)")
	flag.StringVar(&cfg.PrometheusURL, "prometheus-url", cfg.PrometheusURL, "Prometheus server URL (required for prometheus adapter)")
	flag.StringVar(&cfg.FixturePath, "fixture", cfg.FixturePath, "Fixture file for the synthetic adapter")
	flag.StringVar(&cfg.AuditDBPath, "audit-db", cfg.AuditDBPath, "SQLite database path for audit storage (empty disables persistence)")

	flag.Parse()

	return cfg
}
