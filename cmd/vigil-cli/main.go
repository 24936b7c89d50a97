package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vigilhq/vigil/internal/adapter/synthetic"
	"github.com/vigilhq/vigil/internal/adapter/system"
	"github.com/vigilhq/vigil/internal/health"
	"github.com/vigilhq/vigil/internal/metrics"
	"github.com/vigilhq/vigil/internal/profile"
	"github.com/vigilhq/vigil/internal/recovery"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validateDir := validateCmd.String("dir", "", "directory containing monitor profile YAML files")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkAdapter := checkCmd.String("adapter", "system", "metrics adapter (system|synthetic)")
	checkFixture := checkCmd.String("fixture", "", "fixture file for the synthetic adapter")
	checkProfile := checkCmd.String("profile", "", "profile YAML file (defaults apply when omitted)")
	checkRecover := checkCmd.Bool("recover", false, "allow OS-level recovery actions")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if *validateDir == "" {
			fmt.Fprintln(os.Stderr, "Error: --dir flag is required")
			validateCmd.Usage()
			os.Exit(1)
		}
		os.Exit(runValidate(*validateDir))
	case "check":
		checkCmd.Parse(os.Args[2:])
		os.Exit(runCheck(*checkAdapter, *checkFixture, *checkProfile, *checkRecover))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: vigil <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  validate --dir <path>    Validate monitor profile YAML files in a directory")
	fmt.Println("  check [options]          Run one health check and print the report")
	fmt.Println()
}

func runValidate(dirPath string) int {
	schemaPath := findSchemaFile()
	if schemaPath == "" {
		fmt.Fprintln(os.Stderr, "Error: could not find schemas/profile_v1.json")
		return 1
	}

	validator, err := profile.NewValidator(schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize validator: %v\n", err)
		return 1
	}

	errors := validator.ValidateDirectory(dirPath)

	if len(errors) == 0 {
		fmt.Println("✓ All profile files are valid")
		return 0
	}

	// Group errors by file
	errorsByFile := make(map[string][]profile.ValidationError)
	for _, err := range errors {
		errorsByFile[err.File] = append(errorsByFile[err.File], err)
	}

	var files []string
	for file := range errorsByFile {
		files = append(files, file)
	}
	sort.Strings(files)

	fmt.Fprintf(os.Stderr, "✗ Validation failed with %d error(s):\n\n", len(errors))
	for _, file := range files {
		for _, err := range errorsByFile[file] {
			if err.Path != "" {
				fmt.Fprintf(os.Stderr, "%s: %s: %s\n", filepath.Base(err.File), err.Path, err.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(err.File), err.Message)
			}
		}
	}

	return 1
}

func runCheck(adapterType, fixturePath, profilePath string, allowRecover bool) int {
	var source metrics.Source
	switch adapterType {
	case "system":
		source = system.NewAdapter()
	case "synthetic":
		if fixturePath == "" {
			fmt.Fprintln(os.Stderr, "Error: --fixture is required for the synthetic adapter")
			return 1
		}
		adapter := synthetic.NewAdapter()
		if err := adapter.LoadFixture(fixturePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		source = adapter
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown adapter type: %s\n", adapterType)
		return 1
	}

	p := &profile.Profile{}
	if profilePath != "" {
		loaded, err := loadProfileFile(profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		p = loaded
	}
	p.Normalize()

	if !allowRecover {
		disabled := false
		p.Spec.AutoRecovery.Enabled = &disabled
	}

	orchestrator := health.OrchestratorForProfile(p, source, recovery.NewSystemExecutor())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := orchestrator.ForceCheck(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if report.Status == health.StatusCritical || report.Status == health.StatusUnknown {
		return 1
	}
	return 0
}

func loadProfileFile(path string) (*profile.Profile, error) {
	dir := filepath.Dir(path)
	profiles, errs := profile.LoadFromDirectory(dir)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to parse %s: %v", path, errs[0])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, pf := range profiles {
		pfAbs, err := filepath.Abs(pf.File)
		if err != nil {
			pfAbs = pf.File
		}
		if pfAbs == abs {
			return pf.Profile, nil
		}
	}
	return nil, fmt.Errorf("profile file not found: %s", path)
}

// findSchemaFile looks for the schema file in common locations
func findSchemaFile() string {
	candidates := []string{
		"schemas/profile_v1.json",
		"../schemas/profile_v1.json",
		"../../schemas/profile_v1.json",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
