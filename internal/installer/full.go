package installer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/modelforge-app/mfsetup/internal/config"
)

// fullInstall installs into a fresh environment. Nothing pre-exists, so
// no backup is taken. Pipeline: create directories, install modules,
// initialize the data store, write config, create shortcuts, register the
// application, update the manifest.
type fullInstall struct {
	in     *Installer
	logger *slog.Logger
}

func (s *fullInstall) Execute(version string, mods []string) error {
	if err := s.in.CreateDirectories(); err != nil {
		return err
	}

	for _, name := range mods {
		if err := s.in.modules.Install(name, s.in.moduleSource(name), version); err != nil {
			return fmt.Errorf("failed to install module %s: %w", name, err)
		}
		s.in.notifyModuleInstalled(name)
	}

	if err := s.in.migrations.InitializeDatabase(version); err != nil {
		return fmt.Errorf("failed to initialize data store: %w", err)
	}

	if err := s.in.writeDefaultConfig(); err != nil {
		return err
	}

	if err := s.in.createShortcuts(version); err != nil {
		return err
	}

	if err := s.in.registerApplication(version); err != nil {
		return err
	}

	if err := s.in.updateManifest(version); err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}

	s.logger.Info("full install finished", "modules", len(mods))
	return nil
}

// writeDefaultConfig writes the initial settings document, carrying the
// installer's own retention and rollback options forward so later runs
// pick them up from the installation.
func (i *Installer) writeDefaultConfig() error {
	settings := config.Default()
	settings.AppName = i.opts.AppName
	if i.opts.MaxBackups > 0 {
		settings.MaxBackups = i.opts.MaxBackups
	}
	settings.RollbackOnFailure = i.opts.RollbackOnFailure

	if err := settings.Save(i.paths.Config); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// createShortcuts writes the launcher stub under the application root.
func (i *Installer) createShortcuts(version string) error {
	launcher := filepath.Join(i.paths.Root, "modelforge")
	script := fmt.Sprintf("#!/bin/sh\nexec %q \"$@\"\n",
		filepath.Join(i.paths.Modules, "core", "modelforge-bin"))

	if err := os.WriteFile(launcher, []byte(script), 0755); err != nil {
		return fmt.Errorf("failed to create launcher: %w", err)
	}

	i.logger.Info("launcher created", "path", launcher, "version", version)
	return nil
}

// registerApplication records the installation with the host environment.
// The registration record lives in the config tree so uninstallers and
// diagnostic tools can find the root.
func (i *Installer) registerApplication(version string) error {
	record := fmt.Sprintf("name: %s\nversion: %s\nroot: %s\nregistered: %s\n",
		i.opts.AppName, version, i.paths.Root, time.Now().Format(time.RFC3339))

	path := filepath.Join(i.paths.Config, "registration.yaml")
	if err := os.WriteFile(path, []byte(record), 0644); err != nil {
		return fmt.Errorf("failed to write registration record: %w", err)
	}
	return nil
}
