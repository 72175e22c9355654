package installer

import (
	"fmt"
	"log/slog"
	"os"
)

// reinstall replaces the application files while preserving user data.
// Pipeline: back up the data and config trees, remove the module,
// manifest, and version-marker paths (data, config, and logs stay
// untouched), run the fresh-install sub-pipeline, restore data and
// config from the backup, verify, update the manifest.
type reinstall struct {
	in     *Installer
	logger *slog.Logger
}

func (s *reinstall) Execute(version string, mods []string) error {
	backupPath, err := s.in.backups.CreateWithData("")
	if err != nil {
		return fmt.Errorf("backup creation failed, aborting reinstall: %w", err)
	}

	// Only application files are deleted here. The data and config roots
	// must survive this step, and so must logs: the run writing to them
	// is this one.
	for _, path := range []string{s.in.paths.Modules, s.in.paths.Manifest, s.in.paths.Version} {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
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

	if err := s.in.backups.RestoreData(backupPath); err != nil {
		return fmt.Errorf("failed to restore user data: %w", err)
	}

	for _, name := range mods {
		if !s.in.modules.Verify(name) {
			return fmt.Errorf("module %s failed verification after reinstall", name)
		}
	}

	if err := s.in.updateManifest(version); err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}

	s.logger.Info("reinstall finished", "version", version, "modules", len(mods), "backup", backupPath)
	return nil
}
