package profile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Validator validates monitor profile files against the profile schema
// plus a handful of cross-field rules the schema cannot express.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a validator from the given schema file.
func NewValidator(schemaPath string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDirectory loads and validates all profile files in a directory.
func (v *Validator) ValidateDirectory(dirPath string) []ValidationError {
	withFiles, loadErrors := LoadFromDirectory(dirPath)

	var allErrors []ValidationError
	allErrors = append(allErrors, loadErrors...)

	if len(withFiles) == 0 {
		return allErrors
	}

	for _, pf := range withFiles {
		allErrors = append(allErrors, v.validateSchema(pf.File, pf.Profile)...)
	}

	allErrors = append(allErrors, validateExtraRules(withFiles)...)

	return allErrors
}

// validateSchema validates a single profile against the JSON schema.
func (v *Validator) validateSchema(file string, p *Profile) []ValidationError {
	var errors []ValidationError

	// Round-trip through yaml to get the generic form the schema
	// validator wants.
	yamlBytes, err := yaml.Marshal(p)
	if err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to marshal profile: %v", err),
		})
		return errors
	}

	var generic interface{}
	if err := yaml.Unmarshal(yamlBytes, &generic); err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to convert to JSON: %v", err),
		})
		return errors
	}

	if err := v.schema.Validate(generic); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			errors = append(errors, extractSchemaErrors(file, validationErr)...)
		} else {
			errors = append(errors, ValidationError{
				File:    file,
				Message: err.Error(),
			})
		}
	}

	return errors
}

// extractSchemaErrors flattens nested schema validation errors.
func extractSchemaErrors(file string, err *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	path := strings.Join(err.InstanceLocation, ".")
	if path == "" {
		path = "(root)"
	}

	errors = append(errors, ValidationError{
		File:    file,
		Path:    path,
		Message: err.Error(),
	})

	for _, cause := range err.Causes {
		errors = append(errors, extractSchemaErrors(file, cause)...)
	}

	return errors
}

// validateExtraRules applies rules beyond the schema: unique IDs, parseable
// durations, warning strictly below critical, sane business hours.
func validateExtraRules(withFiles []ProfileWithFile) []ValidationError {
	var errors []ValidationError

	idSeen := make(map[string]string)
	for _, pf := range withFiles {
		id := pf.Profile.Metadata.ID
		if prevFile, exists := idSeen[id]; exists {
			errors = append(errors, ValidationError{
				File:    pf.File,
				Path:    "metadata.id",
				Message: fmt.Sprintf("duplicate ID %q (also in %s)", id, filepath.Base(prevFile)),
			})
		} else {
			idSeen[id] = pf.File
		}

		errors = append(errors, validateDurations(pf.File, pf.Profile)...)
		errors = append(errors, validateThresholds(pf.File, pf.Profile)...)
		errors = append(errors, validateBusinessHours(pf.File, pf.Profile)...)
	}

	return errors
}

func validateDurations(file string, p *Profile) []ValidationError {
	var errors []ValidationError

	fields := []struct {
		path  string
		value string
	}{
		{"spec.checkInterval", p.Spec.CheckInterval},
		{"spec.cacheTTL", p.Spec.CacheTTL},
		{"spec.autoRecovery.actionTimeout", p.Spec.AutoRecovery.ActionTimeout},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := ParseDuration(f.value); err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    f.path,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		}
	}

	return errors
}

func validateThresholds(file string, p *Profile) []ValidationError {
	var errors []ValidationError

	for metric, th := range p.Spec.Thresholds {
		if th.Warning >= th.Critical {
			errors = append(errors, ValidationError{
				File: file,
				Path: fmt.Sprintf("spec.thresholds.%s", metric),
				Message: fmt.Sprintf("warning threshold (%.1f) must be below critical (%.1f)",
					th.Warning, th.Critical),
			})
		}
	}

	return errors
}

func validateBusinessHours(file string, p *Profile) []ValidationError {
	bh := p.Spec.Trend.BusinessHours
	if bh.Start == 0 && bh.End == 0 {
		return nil
	}
	if bh.Start < 0 || bh.End > 23 || bh.Start > bh.End {
		return []ValidationError{{
			File:    file,
			Path:    "spec.trend.businessHours",
			Message: fmt.Sprintf("invalid hour range [%d,%d]", bh.Start, bh.End),
		}}
	}
	return nil
}
