// Package manifest persists the installation manifest and version marker
// for a Modelforge installation. The manifest is the single source of truth
// for what is installed; the version marker is a separate scalar whose
// absence means "no installation exists".
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// ModuleRecord describes one registered module in the manifest.
type ModuleRecord struct {
	Installed   bool       `json:"installed"`
	Version     string     `json:"version"`
	InstallDate time.Time  `json:"install_date"`
	UpdateDate  *time.Time `json:"update_date,omitempty"`
}

// Manifest is the installation manifest document. The module map keys are
// exactly the set of registered modules, independent of whether their
// on-disk directories still exist.
type Manifest struct {
	AppName     string                   `json:"app_name"`
	Version     string                   `json:"version"`
	InstallDate time.Time                `json:"install_date"`
	LastUpdate  time.Time                `json:"last_update"`
	Modules     map[string]*ModuleRecord `json:"modules"`
}

// New returns an empty manifest for the given application.
func New(appName string) *Manifest {
	return &Manifest{
		AppName: appName,
		Modules: make(map[string]*ModuleRecord),
	}
}

// ModuleNames returns the registered module names, sorted.
func (m *Manifest) ModuleNames() []string {
	names := make([]string, 0, len(m.Modules))
	for name := range m.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store reads and writes the manifest document and the version marker.
// All mutations go through a full load-mutate-save cycle; there is no
// field-level update at the storage layer.
type Store struct {
	manifestPath string
	versionPath  string
	appName      string
}

// NewStore creates a Store for the given manifest and version marker paths.
func NewStore(manifestPath, versionPath, appName string) *Store {
	return &Store{
		manifestPath: manifestPath,
		versionPath:  versionPath,
		appName:      appName,
	}
}

// ManifestPath returns the path of the manifest document.
func (s *Store) ManifestPath() string {
	return s.manifestPath
}

// VersionPath returns the path of the version marker.
func (s *Store) VersionPath() string {
	return s.versionPath
}

// Load reads the manifest from disk. A missing manifest file is not an
// error: it yields an empty manifest, so that a present version marker
// with a missing manifest reads as "installed, no modules registered".
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return New(s.appName), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Modules == nil {
		m.Modules = make(map[string]*ModuleRecord)
	}
	return &m, nil
}

// Save writes the manifest document to disk.
func (s *Store) Save(m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// VersionExists reports whether the version marker is present on disk.
func (s *Store) VersionExists() bool {
	_, err := os.Stat(s.versionPath)
	return err == nil
}

// ReadVersion reads the installed application version from the marker.
func (s *Store) ReadVersion() (string, error) {
	data, err := os.ReadFile(s.versionPath)
	if err != nil {
		return "", fmt.Errorf("failed to read version marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteVersion writes the version marker. Callers must invoke this in the
// same logical step as any change to the manifest's top-level version.
func (s *Store) WriteVersion(version string) error {
	if err := os.WriteFile(s.versionPath, []byte(version+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write version marker: %w", err)
	}
	return nil
}
