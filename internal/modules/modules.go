// Package modules installs, verifies, and removes the per-module file
// trees under the module root. Installing or removing a module updates
// the registry as a side effect.
package modules

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/modelforge-app/mfsetup/internal/fsutil"
	"github.com/modelforge-app/mfsetup/internal/registry"
)

// Info describes one module's on-disk and registry state.
type Info struct {
	Name        string
	Path        string
	Version     string
	Installed   bool
	FileCount   int
	SizeBytes   int64
	InstallDate time.Time
}

// Manager installs and removes module file trees.
type Manager struct {
	moduleRoot string
	registry   *registry.Registry
	logger     *slog.Logger
}

// New creates a module Manager rooted at moduleRoot.
func New(moduleRoot string, reg *registry.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		moduleRoot: moduleRoot,
		registry:   reg,
		logger:     logger,
	}
}

// Install replaces the module's directory under the module root with a
// copy of sourcePath and registers the module. A missing source is an
// error; an existing target directory is replaced, so re-running an
// install is safe.
func (m *Manager) Install(name, sourcePath, version string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("module source %s does not exist: %w", sourcePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("module source %s is not a directory", sourcePath)
	}

	target := filepath.Join(m.moduleRoot, name)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove existing module %s: %w", name, err)
	}

	if err := fsutil.CopyDir(sourcePath, target); err != nil {
		return fmt.Errorf("failed to copy module %s: %w", name, err)
	}

	if err := m.registry.RegisterModule(name, version); err != nil {
		return fmt.Errorf("failed to register module %s: %w", name, err)
	}

	m.logger.Info("module installed", "module", name, "version", version)
	return nil
}

// Verify reports whether a module's directory exists and is non-empty.
func (m *Manager) Verify(name string) bool {
	target := filepath.Join(m.moduleRoot, name)
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return false
	}
	return !fsutil.IsDirEmpty(target)
}

// Remove deletes a module's directory and unregisters it. Removing an
// absent module is not an error.
func (m *Manager) Remove(name string) error {
	target := filepath.Join(m.moduleRoot, name)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove module %s: %w", name, err)
	}

	if err := m.registry.UnregisterModule(name); err != nil {
		return fmt.Errorf("failed to unregister module %s: %w", name, err)
	}

	m.logger.Info("module removed", "module", name)
	return nil
}

// List returns the module directories present under the module root,
// sorted by name.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.moduleRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read module root: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// GetInfo returns the combined registry and on-disk state of a module.
func (m *Manager) GetInfo(name string) (*Info, error) {
	info := &Info{
		Name: name,
		Path: filepath.Join(m.moduleRoot, name),
	}

	rec, err := m.registry.GetRecord(name)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		info.Version = rec.Version
		info.Installed = rec.Installed
		info.InstallDate = rec.InstallDate
	}

	if _, err := os.Stat(info.Path); err == nil {
		if count, err := fsutil.CountFiles(info.Path); err == nil {
			info.FileCount = count
		}
		if size, err := fsutil.DirSize(info.Path); err == nil {
			info.SizeBytes = size
		}
	}

	return info, nil
}
