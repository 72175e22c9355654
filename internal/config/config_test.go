package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingSettings(t *testing.T) {
	dir := t.TempDir()

	settings, err := Load(dir)
	if err != nil {
		t.Fatalf("Load on missing settings returned error: %v", err)
	}
	if settings.AppName != "Modelforge" {
		t.Errorf("Expected default app name, got %q", settings.AppName)
	}
	if settings.MaxBackups != 5 {
		t.Errorf("Expected default max backups 5, got %d", settings.MaxBackups)
	}
	if settings.RollbackOnFailure {
		t.Error("Expected rollback_on_failure to default to false")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")

	settings := Default()
	settings.Theme = "light"
	settings.MaxBackups = 10
	settings.RollbackOnFailure = true

	if err := settings.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Theme != "light" {
		t.Errorf("Expected theme light, got %q", got.Theme)
	}
	if got.MaxBackups != 10 {
		t.Errorf("Expected max backups 10, got %d", got.MaxBackups)
	}
	if !got.RollbackOnFailure {
		t.Error("Expected rollback_on_failure true")
	}
}

func TestLoadInvalidMaxBackups(t *testing.T) {
	dir := t.TempDir()
	content := "app_name: Modelforge\nmax_backups: -2\n"
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.MaxBackups != 5 {
		t.Errorf("Expected invalid max_backups to fall back to 5, got %d", settings.MaxBackups)
	}
}

func TestLoadMalformedSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte("{{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("Expected error for malformed settings document")
	}
}
