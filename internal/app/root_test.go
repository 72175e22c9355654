package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	// Test that root command is properly configured
	if RootCmd.Use != "mfsetup" {
		t.Errorf("expected Use to be 'mfsetup', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	if !RootCmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	// Test that subcommands are registered
	commands := RootCmd.Commands()

	expectedCommands := []string{"install", "status", "backup", "migrate", "modules", "verify"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		// Use may carry argument hints like "install [flags]"
		name := strings.Fields(cmd.Use)[0]
		foundCommands[name] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	// Test that --root flag is available
	flag := RootCmd.PersistentFlags().Lookup("root")
	if flag == nil {
		t.Fatal("expected --root flag to be registered")
	}

	if flag.Usage == "" {
		t.Error("expected --root flag to have usage text")
	}
}

func TestGetRootDir(t *testing.T) {
	t.Run("flag value wins", func(t *testing.T) {
		dir := t.TempDir()
		rootDir = dir
		t.Cleanup(func() { rootDir = "" })

		got, err := getRootDir()
		if err != nil {
			t.Fatalf("getRootDir() error: %v", err)
		}
		if got != dir {
			t.Errorf("getRootDir() = %q, want %q", got, dir)
		}
	})

	t.Run("default under home", func(t *testing.T) {
		rootDir = ""

		got, err := getRootDir()
		if err != nil {
			t.Fatalf("getRootDir() error: %v", err)
		}
		if filepath.Base(got) != ".modelforge" {
			t.Errorf("default root should end in .modelforge, got %q", got)
		}
	})
}
