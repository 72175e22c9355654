package installer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// cleanInstall wipes the application root and installs from scratch.
// Pipeline: take a final full backup (the backup root is excluded from it
// to avoid nesting), emit the destructive warning, delete everything
// except the backups, recreate the directory skeleton, install modules,
// initialize the data store, write config, update the manifest.
type cleanInstall struct {
	in     *Installer
	logger *slog.Logger
}

func (s *cleanInstall) Execute(version string, mods []string) error {
	backupPath, err := s.in.backups.CreateFull("", filepath.Base(s.in.paths.Lock))
	if err != nil {
		return fmt.Errorf("final backup failed, aborting clean install: %w", err)
	}

	// The warning is a required pipeline step, not optional telemetry.
	s.logger.Warn("clean install will delete the entire application root except backups",
		"root", s.in.paths.Root, "final_backup", backupPath)

	if err := s.run(version, mods); err != nil {
		if s.in.opts.RollbackOnFailure {
			s.logger.Warn("clean install failed, restoring final backup", "backup", backupPath, "error", err)
			if restoreErr := s.in.backups.Restore(backupPath); restoreErr != nil {
				return fmt.Errorf("clean install failed (%w) and rollback also failed: %v", err, restoreErr)
			}
			return fmt.Errorf("clean install failed, pre-operation state restored: %w", err)
		}
		s.logger.Warn("clean install failed, final backup retained for manual recovery", "backup", backupPath)
		return err
	}

	return nil
}

func (s *cleanInstall) run(version string, mods []string) error {
	if err := s.deleteAllExceptBackups(); err != nil {
		return err
	}

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

	s.logger.Info("clean install finished", "version", version, "modules", len(mods))
	return nil
}

// deleteAllExceptBackups removes every entry under the application root
// except the backup directory, so the just-created final backup survives
// the deletion pass. The live lock file is kept too; it is released by
// the caller. The logs directory also survives: the destructive warning
// for this very run is written there, and deleting it would erase the
// only durable record of the wipe.
func (s *cleanInstall) deleteAllExceptBackups() error {
	keep := map[string]bool{
		filepath.Base(s.in.paths.Backups): true,
		filepath.Base(s.in.paths.Lock):    true,
		filepath.Base(s.in.paths.Logs):    true,
	}

	entries, err := os.ReadDir(s.in.paths.Root)
	if err != nil {
		return fmt.Errorf("failed to read application root: %w", err)
	}

	for _, entry := range entries {
		if keep[entry.Name()] {
			continue
		}
		path := filepath.Join(s.in.paths.Root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		s.logger.Info("removed", "path", path)
	}
	return nil
}
