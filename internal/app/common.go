package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/modelforge-app/mfsetup/internal/config"
	"github.com/modelforge-app/mfsetup/internal/installer"
	"github.com/modelforge-app/mfsetup/internal/output"
)

// moduleRows builds table rows by joining registry state with the
// on-disk module tree. Registered modules missing from disk and
// on-disk directories missing from the manifest both get a row.
func moduleRows(in *installer.Installer) ([]output.ModuleRow, error) {
	onDisk, err := in.Modules().List()
	if err != nil {
		return nil, fmt.Errorf("failed to list module directories: %w", err)
	}
	diskSet := make(map[string]bool, len(onDisk))
	for _, name := range onDisk {
		diskSet[name] = true
	}

	registered, err := in.Registry().InstalledModules()
	if err != nil {
		return nil, fmt.Errorf("failed to read module registry: %w", err)
	}

	var rows []output.ModuleRow
	seen := make(map[string]bool)
	for _, name := range registered {
		row := output.ModuleRow{Name: name, Installed: true, OnDisk: diskSet[name]}
		if info, err := in.Modules().GetInfo(name); err == nil {
			row.Version = info.Version
			row.SizeBytes = info.SizeBytes
			row.FileCount = info.FileCount
		}
		rows = append(rows, row)
		seen[name] = true
	}
	for _, name := range onDisk {
		if seen[name] {
			continue
		}
		row := output.ModuleRow{Name: name, OnDisk: true}
		if info, err := in.Modules().GetInfo(name); err == nil {
			row.SizeBytes = info.SizeBytes
			row.FileCount = info.FileCount
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// newInstaller builds an Installer for the given root, honoring any
// settings.yaml written by a previous installation.
func newInstaller(root string, logger *slog.Logger) *installer.Installer {
	paths := installer.DefaultPaths(root)

	settings, err := config.Load(paths.Config)
	if err != nil {
		// A corrupt settings file must not block recovery commands.
		settings = config.Default()
	}

	return installer.New(root, installer.Options{
		AppName:           settings.AppName,
		MaxBackups:        settings.MaxBackups,
		RollbackOnFailure: settings.RollbackOnFailure,
		Logger:            logger,
	})
}

// quietLogger returns a logger for read-only commands: warnings and
// errors go to stderr, informational events are suppressed.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openInstallLog opens a timestamped JSON log file under logs/ for a
// lifecycle operation. If the logs directory cannot be created, events
// fall back to stderr so the operation still runs.
func openInstallLog(root string) (*slog.Logger, io.Closer, error) {
	logDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), nopCloser{}, nil
	}

	name := fmt.Sprintf("install-%s.log", time.Now().Format("2006-01-02-150405"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open install log: %w", err)
	}

	return slog.New(slog.NewJSONHandler(f, nil)), f, nil
}
