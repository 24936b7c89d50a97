package profile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadFromDirectory loads every *.yaml/*.yml file under dirPath, walking
// subdirectories. Files load in sorted path order so multi-profile setups
// behave the same on every filesystem; parse failures are collected per
// file rather than aborting the load.
func LoadFromDirectory(dirPath string) ([]ProfileWithFile, []ValidationError) {
	var files []string
	walkErr := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, []ValidationError{{
			File:    dirPath,
			Message: fmt.Sprintf("failed to read directory: %v", walkErr),
		}}
	}
	sort.Strings(files)

	var profiles []ProfileWithFile
	var errors []ValidationError
	for _, file := range files {
		p, err := loadProfileFile(file)
		if err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Message: fmt.Sprintf("failed to parse YAML: %v", err),
			})
			continue
		}
		profiles = append(profiles, ProfileWithFile{Profile: p, File: file})
	}

	return profiles, errors
}

func loadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
