package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stageSource writes a staged module tree per name and returns the
// source directory.
func stageSource(t *testing.T, mods ...string) string {
	t.Helper()

	src := t.TempDir()
	for _, name := range mods {
		dir := filepath.Join(src, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to stage module %s: %v", name, err)
		}
		payload := filepath.Join(dir, name+".bin")
		if err := os.WriteFile(payload, []byte("payload for "+name), 0644); err != nil {
			t.Fatalf("failed to write module payload: %v", err)
		}
	}
	return src
}

// setInstallFlags points the package-level command state at a temp
// environment and restores it afterwards.
func setInstallFlags(t *testing.T, root, source, version string, mods []string) {
	t.Helper()

	rootDir = root
	installFlagVersion = version
	installFlagSource = source
	installFlagModules = mods
	installFlagMode = ""
	installFlagYes = false
	installFlagRollback = false

	t.Cleanup(func() {
		rootDir = ""
		installFlagVersion = ""
		installFlagSource = ""
		installFlagModules = nil
		installFlagMode = ""
		installFlagYes = false
		installFlagRollback = false
	})
}

func TestInstallCommandFlags(t *testing.T) {
	for _, name := range []string{"version", "mode", "modules", "source", "yes", "rollback-on-failure"} {
		if installCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestRunInstallRequiresVersion(t *testing.T) {
	setInstallFlags(t, t.TempDir(), t.TempDir(), "", nil)

	err := runInstall(installCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--version") {
		t.Errorf("expected missing --version error, got %v", err)
	}
}

func TestRunInstallRequiresSource(t *testing.T) {
	setInstallFlags(t, t.TempDir(), "", "1.0.0", nil)

	err := runInstall(installCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--source") {
		t.Errorf("expected missing --source error, got %v", err)
	}
}

func TestRunInstallRejectsUnknownMode(t *testing.T) {
	setInstallFlags(t, t.TempDir(), stageSource(t, "core"), "1.0.0", []string{"core"})
	installFlagMode = "sideways"

	if err := runInstall(installCmd, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRunInstallFullInstall(t *testing.T) {
	root := t.TempDir()
	source := stageSource(t, "core", "render")
	setInstallFlags(t, root, source, "1.0.0", []string{"core", "render"})

	if err := runInstall(installCmd, nil); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	// Version marker written
	marker, err := os.ReadFile(filepath.Join(root, "version.txt"))
	if err != nil {
		t.Fatalf("version marker missing: %v", err)
	}
	if strings.TrimSpace(string(marker)) != "1.0.0" {
		t.Errorf("version marker = %q, want 1.0.0", marker)
	}

	// Modules deployed
	for _, name := range []string{"core", "render"} {
		payload := filepath.Join(root, "modules", name, name+".bin")
		if _, err := os.Stat(payload); err != nil {
			t.Errorf("module %s payload missing: %v", name, err)
		}
	}

	// Install log written
	logs, err := os.ReadDir(filepath.Join(root, "logs"))
	if err != nil || len(logs) == 0 {
		t.Error("expected an install log under logs/")
	}

	// Read-only commands work against the result
	if err := runStatus(statusCmd, nil); err != nil {
		t.Errorf("runStatus() after install error: %v", err)
	}
	if err := runVerify(verifyCmd, nil); err != nil {
		t.Errorf("runVerify() after install error: %v", err)
	}
}

func TestRunInstallPatchUpgrade(t *testing.T) {
	root := t.TempDir()
	source := stageSource(t, "core")
	setInstallFlags(t, root, source, "1.0.0", []string{"core"})

	if err := runInstall(installCmd, nil); err != nil {
		t.Fatalf("initial install error: %v", err)
	}

	// Second run auto-selects patch and bumps the version.
	installFlagVersion = "1.1.0"
	if err := runInstall(installCmd, nil); err != nil {
		t.Fatalf("patch install error: %v", err)
	}

	marker, err := os.ReadFile(filepath.Join(root, "version.txt"))
	if err != nil {
		t.Fatalf("version marker missing: %v", err)
	}
	if strings.TrimSpace(string(marker)) != "1.1.0" {
		t.Errorf("version marker = %q, want 1.1.0", marker)
	}

	// Patch took a backup first
	backups, err := os.ReadDir(filepath.Join(root, "backups"))
	if err != nil || len(backups) == 0 {
		t.Error("expected a pre-patch backup under backups/")
	}
}
