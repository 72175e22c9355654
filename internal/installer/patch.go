package installer

import (
	"fmt"
	"log/slog"
)

// patchInstall incrementally updates an existing installation. Pipeline:
// require an existing install, back up the pre-patch state, update the
// modules whose versions differ, apply migrations, verify, update the
// manifest. The backup is created before any mutating step; a failed
// backup aborts the patch.
type patchInstall struct {
	in     *Installer
	logger *slog.Logger
}

func (s *patchInstall) Execute(version string, mods []string) error {
	if !s.in.store.VersionExists() {
		return fmt.Errorf("patch requires an existing installation and none was found")
	}

	fromVersion, err := s.in.store.ReadVersion()
	if err != nil {
		return err
	}

	backupPath, err := s.in.backups.Create("")
	if err != nil {
		return fmt.Errorf("backup creation failed, aborting patch: %w", err)
	}

	if err := s.run(fromVersion, version, mods); err != nil {
		if s.in.opts.RollbackOnFailure {
			s.logger.Warn("patch failed, restoring pre-patch backup", "backup", backupPath, "error", err)
			if restoreErr := s.in.backups.Restore(backupPath); restoreErr != nil {
				return fmt.Errorf("patch failed (%w) and rollback also failed: %v", err, restoreErr)
			}
			return fmt.Errorf("patch failed, pre-patch state restored: %w", err)
		}
		s.logger.Warn("patch failed, pre-patch backup retained for manual recovery", "backup", backupPath)
		return err
	}

	return nil
}

// run is the mutating tail of the patch pipeline, separated so the
// rollback policy wraps it as one unit.
func (s *patchInstall) run(fromVersion, version string, mods []string) error {
	// Module updates are optional (an empty list is a version-only
	// patch); the version bump and migrations are not.
	for _, name := range mods {
		current, err := s.in.registry.ModuleVersion(name)
		if err != nil {
			return err
		}
		if current == version {
			s.logger.Info("module already at target version", "module", name)
			s.in.notifyModuleInstalled(name)
			continue
		}

		if err := s.in.modules.Install(name, s.in.moduleSource(name), version); err != nil {
			return fmt.Errorf("failed to update module %s: %w", name, err)
		}
		s.in.notifyModuleInstalled(name)
	}

	if err := s.in.migrations.ApplyMigrations(fromVersion, version); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, name := range mods {
		if !s.in.modules.Verify(name) {
			return fmt.Errorf("module %s failed verification after patch", name)
		}
	}

	if err := s.in.updateManifest(version); err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}

	s.logger.Info("patch finished", "from", fromVersion, "to", version, "modules", len(mods))
	return nil
}
