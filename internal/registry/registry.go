// Package registry maintains the per-module records in the installation
// manifest. Every mutation is a full read-modify-write of the manifest
// document; callers must not interleave concurrent mutations.
package registry

import (
	"fmt"
	"time"

	"github.com/modelforge-app/mfsetup/internal/manifest"
)

// Registry wraps the manifest store's module map.
type Registry struct {
	store *manifest.Store
}

// Info holds aggregate registry counts for status output.
type Info struct {
	TotalModules   int
	InstalledCount int
	Modules        []string
}

// New creates a Registry backed by the given manifest store.
func New(store *manifest.Store) *Registry {
	return &Registry{store: store}
}

// RegisterModule adds or replaces the record for a module. Re-registering
// an existing module keeps its original install date and stamps an update
// date instead.
func (r *Registry) RegisterModule(name, version string) error {
	m, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	now := time.Now()
	if existing, ok := m.Modules[name]; ok {
		existing.Installed = true
		existing.Version = version
		existing.UpdateDate = &now
	} else {
		m.Modules[name] = &manifest.ModuleRecord{
			Installed:   true,
			Version:     version,
			InstallDate: now,
		}
	}

	return r.store.Save(m)
}

// UnregisterModule removes a module's record. Removing an unknown module
// is not an error.
func (r *Registry) UnregisterModule(name string) error {
	m, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	delete(m.Modules, name)
	return r.store.Save(m)
}

// ModuleVersion returns the registered version for a module, or "" if the
// module is not registered.
func (r *Registry) ModuleVersion(name string) (string, error) {
	m, err := r.store.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load manifest: %w", err)
	}

	rec, ok := m.Modules[name]
	if !ok {
		return "", nil
	}
	return rec.Version, nil
}

// IsInstalled reports whether a module is registered and marked installed.
func (r *Registry) IsInstalled(name string) (bool, error) {
	m, err := r.store.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load manifest: %w", err)
	}

	rec, ok := m.Modules[name]
	return ok && rec.Installed, nil
}

// AllModules returns the names of every registered module, sorted.
func (r *Registry) AllModules() ([]string, error) {
	m, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return m.ModuleNames(), nil
}

// InstalledModules returns the names of modules marked installed, sorted.
func (r *Registry) InstalledModules() ([]string, error) {
	m, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	names := make([]string, 0, len(m.Modules))
	for _, name := range m.ModuleNames() {
		if m.Modules[name].Installed {
			names = append(names, name)
		}
	}
	return names, nil
}

// UpdateModuleVersion bumps the version of an already-registered module.
// It fails if the module is not registered.
func (r *Registry) UpdateModuleVersion(name, version string) error {
	m, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	rec, ok := m.Modules[name]
	if !ok {
		return fmt.Errorf("module %s is not registered", name)
	}

	now := time.Now()
	rec.Version = version
	rec.UpdateDate = &now

	return r.store.Save(m)
}

// GetInfo returns aggregate counts over the registry.
func (r *Registry) GetInfo() (*Info, error) {
	m, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	info := &Info{
		TotalModules: len(m.Modules),
		Modules:      m.ModuleNames(),
	}
	for _, rec := range m.Modules {
		if rec.Installed {
			info.InstalledCount++
		}
	}
	return info, nil
}

// GetRecord returns the manifest record for a module, or nil if absent.
func (r *Registry) GetRecord(name string) (*manifest.ModuleRecord, error) {
	m, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return m.Modules[name], nil
}
