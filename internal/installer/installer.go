// Package installer orchestrates the Modelforge installation lifecycle.
// It owns the canonical directory layout, detects existing installations,
// and dispatches one of four mutually exclusive installation modes, each
// an ordered pipeline over the module, backup, registry, and migration
// managers.
package installer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/modelforge-app/mfsetup/internal/backup"
	"github.com/modelforge-app/mfsetup/internal/manifest"
	"github.com/modelforge-app/mfsetup/internal/migrate"
	"github.com/modelforge-app/mfsetup/internal/modules"
	"github.com/modelforge-app/mfsetup/internal/registry"
)

// DefaultModules is the full known module list, used when the caller does
// not name specific modules.
var DefaultModules = []string{"core", "render", "tools", "viewer"}

// DefaultAppName is the application the installer manages.
const DefaultAppName = "Modelforge"

// Paths is the canonical directory layout under the application root.
type Paths struct {
	Root    string
	Modules string
	Data    string
	Config  string
	Backups string
	Logs    string

	Manifest string
	Version  string
	Database string
	Lock     string
}

// DefaultPaths returns the layout rooted at the given directory.
func DefaultPaths(root string) Paths {
	return Paths{
		Root:     root,
		Modules:  filepath.Join(root, "modules"),
		Data:     filepath.Join(root, "data"),
		Config:   filepath.Join(root, "config"),
		Backups:  filepath.Join(root, "backups"),
		Logs:     filepath.Join(root, "logs"),
		Manifest: filepath.Join(root, "manifest.json"),
		Version:  filepath.Join(root, "version.txt"),
		Database: filepath.Join(root, "data", "modelforge.db"),
		Lock:     filepath.Join(root, "install.lock"),
	}
}

// InstallationInfo describes a detected installation.
type InstallationInfo struct {
	Version     string
	Modules     []string
	InstallDate time.Time
	LastUpdate  time.Time
}

// Status is the read-only projection over detection for UI consumption.
type Status struct {
	Installed   bool
	Version     string
	Modules     []string
	InstallDate *time.Time
	LastUpdate  *time.Time
}

// Options configures an Installer.
type Options struct {
	// AppName overrides the application name in manifests and settings.
	AppName string

	// SourceDir is where staged module trees live, one subdirectory per
	// module. Required for any mode that installs modules.
	SourceDir string

	// MaxBackups is the snapshot retention limit; <= 0 selects the default.
	MaxBackups int

	// RollbackOnFailure restores the pre-operation backup automatically
	// when a patch or clean-install pipeline fails partway. When false,
	// the backup is left for manual recovery and the failure is surfaced
	// unchanged.
	RollbackOnFailure bool

	// OnModuleInstalled is called after each requested module reaches the
	// target version. UI callers use it to drive progress display. May be
	// nil.
	OnModuleInstalled func(name string)

	// Logger receives all lifecycle events. Nil selects slog.Default().
	Logger *slog.Logger
}

// Installer coordinates the managers over a shared layout. At most one
// installation operation may run at a time; Install enforces that with an
// advisory lock file under the application root.
type Installer struct {
	paths Paths
	opts  Options

	store      *manifest.Store
	registry   *registry.Registry
	backups    *backup.Manager
	migrations *migrate.Manager
	modules    *modules.Manager
	logger     *slog.Logger
}

// New creates an Installer rooted at the given directory.
func New(root string, opts Options) *Installer {
	if opts.AppName == "" {
		opts.AppName = DefaultAppName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	paths := DefaultPaths(root)
	store := manifest.NewStore(paths.Manifest, paths.Version, opts.AppName)
	reg := registry.New(store)

	return &Installer{
		paths:      paths,
		opts:       opts,
		store:      store,
		registry:   reg,
		backups:    backup.New(store, paths.Root, paths.Backups, paths.Data, paths.Config, opts.MaxBackups, opts.Logger),
		migrations: migrate.New(paths.Database, opts.Logger),
		modules:    modules.New(paths.Modules, reg, opts.Logger),
		logger:     opts.Logger,
	}
}

// Paths returns the canonical layout.
func (i *Installer) Paths() Paths {
	return i.paths
}

// Registry exposes the registry manager for diagnostic callers.
func (i *Installer) Registry() *registry.Registry {
	return i.registry
}

// Backups exposes the backup manager for diagnostic callers.
func (i *Installer) Backups() *backup.Manager {
	return i.backups
}

// Migrations exposes the migration manager for diagnostic callers.
func (i *Installer) Migrations() *migrate.Manager {
	return i.migrations
}

// Modules exposes the module manager for diagnostic callers.
func (i *Installer) Modules() *modules.Manager {
	return i.modules
}

// DetectInstallation returns nil if and only if the version marker is
// absent. A present marker with a missing manifest is an installation
// with an empty module map, not an error.
func (i *Installer) DetectInstallation() (*InstallationInfo, error) {
	if !i.store.VersionExists() {
		return nil, nil
	}

	version, err := i.store.ReadVersion()
	if err != nil {
		return nil, err
	}

	m, err := i.store.Load()
	if err != nil {
		return nil, err
	}

	return &InstallationInfo{
		Version:     version,
		Modules:     m.ModuleNames(),
		InstallDate: m.InstallDate,
		LastUpdate:  m.LastUpdate,
	}, nil
}

// SelectMode proposes a default mode for the detected state: a missing
// installation gets a full install, anything else gets a patch. The
// destructive modes are never proposed; they are operator-selected only.
func SelectMode(existing *InstallationInfo) Mode {
	if existing == nil {
		return ModeFullInstall
	}
	return ModePatch
}

// CreateDirectories idempotently ensures the five root directories exist.
func (i *Installer) CreateDirectories() error {
	for _, dir := range []string{i.paths.Modules, i.paths.Data, i.paths.Config, i.paths.Backups, i.paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Install runs the selected mode's pipeline for the given target version
// and module list. A nil module list selects the full known module list.
// Recovery from a failed pipeline is the mode's responsibility; Install
// logs the failure and returns it unchanged.
func (i *Installer) Install(mode Mode, version string, mods []string) error {
	if version == "" {
		return fmt.Errorf("target version is required")
	}
	if mods == nil {
		mods = DefaultModules
	}

	opID := uuid.NewString()
	logger := i.logger.With("operation_id", opID, "mode", mode.String(), "version", version)

	release, err := i.acquireLock(opID)
	if err != nil {
		return fmt.Errorf("failed to acquire install lock: %w", err)
	}
	defer release()

	if err := i.CreateDirectories(); err != nil {
		return err
	}

	strat, err := i.strategy(mode, logger)
	if err != nil {
		return err
	}

	logger.Info("installation started", "modules", mods)
	if err := strat.Execute(version, mods); err != nil {
		logger.Error("installation failed", "error", err)
		return err
	}

	logger.Info("installation complete")
	return nil
}

// strategy builds the pipeline for a mode.
func (i *Installer) strategy(mode Mode, logger *slog.Logger) (strategy, error) {
	switch mode {
	case ModeFullInstall:
		return &fullInstall{in: i, logger: logger}, nil
	case ModePatch:
		return &patchInstall{in: i, logger: logger}, nil
	case ModeReinstall:
		return &reinstall{in: i, logger: logger}, nil
	case ModeCleanInstall:
		return &cleanInstall{in: i, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown installation mode %q", mode)
	}
}

// GetInstallationInfo returns the read-only status projection.
func (i *Installer) GetInstallationInfo() (*Status, error) {
	existing, err := i.DetectInstallation()
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &Status{}, nil
	}

	status := &Status{
		Installed: true,
		Version:   existing.Version,
		Modules:   existing.Modules,
	}
	if !existing.InstallDate.IsZero() {
		status.InstallDate = &existing.InstallDate
	}
	if !existing.LastUpdate.IsZero() {
		status.LastUpdate = &existing.LastUpdate
	}
	return status, nil
}

// notifyModuleInstalled reports module deployment progress to the
// configured hook.
func (i *Installer) notifyModuleInstalled(name string) {
	if i.opts.OnModuleInstalled != nil {
		i.opts.OnModuleInstalled(name)
	}
}

// moduleSource returns the staged tree for a module.
func (i *Installer) moduleSource(name string) string {
	return filepath.Join(i.opts.SourceDir, name)
}

// updateManifest stamps the manifest's top-level version and timestamps
// and writes the version marker in the same logical step.
func (i *Installer) updateManifest(version string) error {
	m, err := i.store.Load()
	if err != nil {
		return err
	}

	now := time.Now()
	m.AppName = i.opts.AppName
	m.Version = version
	if m.InstallDate.IsZero() {
		m.InstallDate = now
	}
	m.LastUpdate = now

	if err := i.store.Save(m); err != nil {
		return err
	}
	return i.store.WriteVersion(version)
}
