package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunVerifyNoInstallation(t *testing.T) {
	rootDir = t.TempDir()
	t.Cleanup(func() { rootDir = "" })

	err := runVerify(verifyCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no installation") {
		t.Errorf("expected no-installation error, got %v", err)
	}
}

func TestVerifyOnceReportsDrift(t *testing.T) {
	root := t.TempDir()
	source := stageSource(t, "core", "render")
	setInstallFlags(t, root, source, "1.0.0", []string{"core", "render"})

	if err := runInstall(installCmd, nil); err != nil {
		t.Fatalf("install error: %v", err)
	}

	in := newInstaller(root, quietLogger())
	if err := verifyOnce(in); err != nil {
		t.Fatalf("verifyOnce() on clean install error: %v", err)
	}

	// Delete one module behind the installer's back.
	if err := os.RemoveAll(filepath.Join(root, "modules", "render")); err != nil {
		t.Fatalf("failed to remove module dir: %v", err)
	}
	// Drop an unregistered directory next to the real modules.
	if err := os.MkdirAll(filepath.Join(root, "modules", "rogue"), 0755); err != nil {
		t.Fatalf("failed to create rogue dir: %v", err)
	}

	err := verifyOnce(in)
	if err == nil {
		t.Fatal("expected verification failure after manual edits")
	}
	if !strings.Contains(err.Error(), "missing") || !strings.Contains(err.Error(), "unregistered") {
		t.Errorf("error should name both drift kinds, got %v", err)
	}
}
