// Package config reads and writes the Modelforge settings document that
// lives in the installation's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the settings document name inside the config directory.
const SettingsFile = "settings.yaml"

// Settings holds the persisted application and installer preferences.
type Settings struct {
	AppName           string `yaml:"app_name"`
	Theme             string `yaml:"theme"`
	MaxBackups        int    `yaml:"max_backups"`
	RollbackOnFailure bool   `yaml:"rollback_on_failure"`
}

// Default returns the settings written by a fresh install.
func Default() *Settings {
	return &Settings{
		AppName:           "Modelforge",
		Theme:             "dark",
		MaxBackups:        5,
		RollbackOnFailure: false,
	}
}

// Load reads the settings document from the config directory. A missing
// document yields the defaults without an error, so that the installer
// works against a config tree it has not written yet.
func Load(configDir string) (*Settings, error) {
	path := filepath.Join(configDir, SettingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if settings.MaxBackups <= 0 {
		settings.MaxBackups = Default().MaxBackups
	}
	return settings, nil
}

// Save writes the settings document into the config directory, creating
// the directory if needed.
func (s *Settings) Save(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	path := filepath.Join(configDir, SettingsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
