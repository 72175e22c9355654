package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestModulesCommands(t *testing.T) {
	root := t.TempDir()
	source := stageSource(t, "core", "tools")
	setInstallFlags(t, root, source, "1.0.0", []string{"core", "tools"})

	if err := runInstall(installCmd, nil); err != nil {
		t.Fatalf("install error: %v", err)
	}

	if err := runModulesList(modulesListCmd, nil); err != nil {
		t.Errorf("runModulesList() error: %v", err)
	}
	if err := runModulesInfo(modulesInfoCmd, []string{"core"}); err != nil {
		t.Errorf("runModulesInfo() error: %v", err)
	}

	if err := runModulesRemove(modulesRemoveCmd, []string{"tools"}); err != nil {
		t.Fatalf("runModulesRemove() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "modules", "tools")); !os.IsNotExist(err) {
		t.Error("removed module directory should be gone")
	}

	in := newInstaller(root, quietLogger())
	installed, err := in.Registry().InstalledModules()
	if err != nil {
		t.Fatalf("InstalledModules() error: %v", err)
	}
	for _, name := range installed {
		if name == "tools" {
			t.Error("removed module should be unregistered")
		}
	}
}

func TestMigrateCommands(t *testing.T) {
	root := t.TempDir()
	source := stageSource(t, "core")
	setInstallFlags(t, root, source, "1.0.0", []string{"core"})

	// Before any install there is no data store.
	if err := runMigrateVersion(migrateVersionCmd, nil); err != nil {
		t.Errorf("runMigrateVersion() without data store error: %v", err)
	}

	if err := runInstall(installCmd, nil); err != nil {
		t.Fatalf("install error: %v", err)
	}

	if err := runMigrateHistory(migrateHistoryCmd, nil); err != nil {
		t.Errorf("runMigrateHistory() error: %v", err)
	}
	if err := runMigrateVersion(migrateVersionCmd, nil); err != nil {
		t.Errorf("runMigrateVersion() error: %v", err)
	}
}
