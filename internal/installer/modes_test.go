package installer

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newLoggedEnv builds a test environment whose installer logs to a file
// under <root>/logs, the same way the CLI does for real runs.
func newLoggedEnv(t *testing.T) (*testEnv, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "modelforge")
	logDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(logDir, "install-run.log")
	f, err := os.Create(logPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	source := t.TempDir()
	in := New(root, Options{
		SourceDir: source,
		Logger:    slog.New(slog.NewJSONHandler(f, nil)),
	})
	return &testEnv{root: root, source: source, in: in}, logPath
}

// seedUserData drops files into the data and config trees and returns
// their contents keyed by path relative to the root.
func seedUserData(t *testing.T, env *testEnv) map[string]string {
	t.Helper()
	files := map[string]string{
		"data/library/benchy.stl": "solid benchy",
		"data/projects.index":     "idx-v1",
		"config/settings.yaml":    "theme: light\n",
		"config/preferences.yaml": "grid: true\n",
	}
	for rel, content := range files {
		path := filepath.Join(env.root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return files
}

func TestReinstallPreservesUserData(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageModules(t, "core", "render")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core", "render"}); err != nil {
		t.Fatal(err)
	}
	userFiles := seedUserData(t, env)

	if err := env.in.Install(ModeReinstall, "1.0.0", []string{"core", "render"}); err != nil {
		t.Fatalf("Reinstall failed: %v", err)
	}

	// Every file originally under data/ and config/ must be byte-identical.
	for rel, want := range userFiles {
		data, err := os.ReadFile(filepath.Join(env.root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("User file %s missing after reinstall: %v", rel, err)
		}
		if string(data) != want {
			t.Errorf("User file %s changed: %q != %q", rel, string(data), want)
		}
	}

	// Application files are fresh.
	if _, err := os.Stat(filepath.Join(env.in.Paths().Modules, "core", "core.bin")); err != nil {
		t.Errorf("Expected reinstalled core module: %v", err)
	}

	status, err := env.in.GetInstallationInfo()
	if err != nil {
		t.Fatal(err)
	}
	if !status.Installed || status.Version != "1.0.0" {
		t.Errorf("Unexpected status after reinstall: %+v", status)
	}
}

func TestCleanInstallBackupSurvivesDeletion(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageModules(t, "core")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatal(err)
	}
	seedUserData(t, env)

	before, err := env.in.Backups().List()
	if err != nil {
		t.Fatal(err)
	}

	if err := env.in.Install(ModeCleanInstall, "2.0.0", []string{"core"}); err != nil {
		t.Fatalf("Clean install failed: %v", err)
	}

	after, err := env.in.Backups().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("Expected one new final backup, had %d, have %d", len(before), len(after))
	}

	// The final backup captured the pre-deletion state, including user data.
	final := after[len(after)-1]
	if final.Version != "1.0.0" {
		t.Errorf("Expected final backup captured at 1.0.0, got %q", final.Version)
	}
	if _, err := os.Stat(filepath.Join(final.Path, "data", "projects.index")); err != nil {
		t.Errorf("Expected user data inside final backup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(final.Path, "backups")); !os.IsNotExist(err) {
		t.Error("Final backup must not contain a nested backups directory")
	}

	// Old user data is gone from the live tree; the new install is clean.
	if _, err := os.Stat(filepath.Join(env.root, "data", "projects.index")); !os.IsNotExist(err) {
		t.Error("Expected clean install to remove old user data")
	}

	status, err := env.in.GetInstallationInfo()
	if err != nil {
		t.Fatal(err)
	}
	if status.Version != "2.0.0" {
		t.Errorf("Expected version 2.0.0 after clean install, got %q", status.Version)
	}

	schemaVersion, err := env.in.Migrations().CurrentSchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if schemaVersion != "2.0.0" {
		t.Errorf("Expected fresh schema at 2.0.0, got %q", schemaVersion)
	}
}

func TestPatchFailureWithoutRollbackKeepsBackup(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageModules(t, "core")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatal(err)
	}

	// "ghost" has no staged source, so the patch fails mid-pipeline.
	err := env.in.Install(ModePatch, "1.1.0", []string{"ghost"})
	if err == nil {
		t.Fatal("Expected patch with missing module source to fail")
	}

	// Default policy: no automatic rollback, backup retained for manual
	// recovery, failure surfaced unchanged.
	snapshots, listErr := env.in.Backups().List()
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(snapshots) == 0 {
		t.Error("Expected pre-patch backup to be retained after failure")
	}
}

func TestPatchFailureWithRollbackRestores(t *testing.T) {
	env := newTestEnv(t, Options{RollbackOnFailure: true})
	env.stageModules(t, "core")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatal(err)
	}

	err := env.in.Install(ModePatch, "1.1.0", []string{"ghost"})
	if err == nil {
		t.Fatal("Expected patch with missing module source to fail")
	}

	// Rollback restored the pre-patch version marker and manifest.
	version, readErr := env.in.store.ReadVersion()
	if readErr != nil {
		t.Fatal(readErr)
	}
	if version != "1.0.0" {
		t.Errorf("Expected restored version 1.0.0, got %q", version)
	}

	m, loadErr := env.in.store.Load()
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if m.Version != "1.0.0" {
		t.Errorf("Expected restored manifest version 1.0.0, got %q", m.Version)
	}
}

func TestCleanInstallFailureWithRollbackRestores(t *testing.T) {
	env := newTestEnv(t, Options{RollbackOnFailure: true})
	env.stageModules(t, "core")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatal(err)
	}
	seedUserData(t, env)

	// The clean install deletes everything and then fails installing an
	// unstaged module; rollback must bring the old state back.
	err := env.in.Install(ModeCleanInstall, "2.0.0", []string{"ghost"})
	if err == nil {
		t.Fatal("Expected clean install with missing module source to fail")
	}

	version, readErr := env.in.store.ReadVersion()
	if readErr != nil {
		t.Fatal(readErr)
	}
	if version != "1.0.0" {
		t.Errorf("Expected restored version 1.0.0, got %q", version)
	}

	data, readErr := os.ReadFile(filepath.Join(env.root, "data", "projects.index"))
	if readErr != nil {
		t.Fatalf("Expected user data restored by rollback: %v", readErr)
	}
	if string(data) != "idx-v1" {
		t.Errorf("Restored user data corrupted: %q", string(data))
	}

	// Modules restored from the full snapshot.
	if _, statErr := os.Stat(filepath.Join(env.in.Paths().Modules, "core", "core.bin")); statErr != nil {
		t.Errorf("Expected module tree restored by rollback: %v", statErr)
	}
}

func TestInstallLockBlocksConcurrentRun(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageModules(t, "core")

	// Simulate a live holder: the current process is alive, so the lock
	// is not stale.
	if err := os.MkdirAll(env.root, 0755); err != nil {
		t.Fatal(err)
	}
	release, err := env.in.acquireLock("test-op")
	if err != nil {
		t.Fatalf("acquireLock failed: %v", err)
	}
	defer release()

	err = env.in.Install(ModeFullInstall, "1.0.0", []string{"core"})
	if err == nil {
		t.Fatal("Expected install to fail while lock is held")
	}
}

func TestInstallLockStaleRecovery(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageModules(t, "core")

	// A lock left behind by a dead process must not wedge the installer.
	if err := os.MkdirAll(env.root, 0755); err != nil {
		t.Fatal(err)
	}
	stale := `{"pid": 999999999, "operation_id": "gone", "acquired": "2026-01-01T00:00:00Z"}`
	if err := os.WriteFile(env.in.Paths().Lock, []byte(stale), 0644); err != nil {
		t.Fatal(err)
	}

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatalf("Expected stale lock recovery, install failed: %v", err)
	}
}

func TestCleanInstallPreservesInstallLog(t *testing.T) {
	env, logPath := newLoggedEnv(t)
	env.stageModules(t, "core")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatal(err)
	}
	if err := env.in.Install(ModeCleanInstall, "1.1.0", []string{"core"}); err != nil {
		t.Fatalf("Clean install failed: %v", err)
	}

	// The deletion pass must not eat the log carrying this run's
	// destructive warning.
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Install log deleted by clean install: %v", err)
	}
	if !strings.Contains(string(data), "delete the entire application root") {
		t.Error("Destructive warning missing from surviving install log")
	}
}

func TestReinstallPreservesInstallLog(t *testing.T) {
	env, logPath := newLoggedEnv(t)
	env.stageModules(t, "core")

	if err := env.in.Install(ModeFullInstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatal(err)
	}
	if err := env.in.Install(ModeReinstall, "1.0.0", []string{"core"}); err != nil {
		t.Fatalf("Reinstall failed: %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("Install log deleted by reinstall: %v", err)
	}
}
