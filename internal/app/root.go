package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	rootDir string

	// RootCmd is the root command for mfsetup
	RootCmd = &cobra.Command{
		Use:   "mfsetup",
		Short: "Modelforge installation and upgrade manager",
		Long: `mfsetup installs, patches, and repairs a Modelforge installation.

It coordinates module deployment, snapshot backups, and data store
migrations so the application directory is always in a consistent,
recoverable state. Every destructive operation takes a backup first
and can roll back automatically.

Installation modes:
  full       First-time installation into an empty root
  patch      In-place upgrade preserving user data and settings
  reinstall  Redeploy all modules, keeping data and config
  clean      Wipe everything except backups and start fresh

Quick Start:
  1. mfsetup install --version 1.0.0 --source ./dist
  2. mfsetup status
  3. mfsetup install --version 1.1.0 --source ./dist   # patches in place

Examples:
  # Check what is installed
  mfsetup status

  # List retained backups
  mfsetup backup list

  # Restore the most recent backup
  mfsetup backup restore latest

  # Show migration history
  mfsetup migrate history

  # Verify module integrity, re-checking on changes
  mfsetup verify --watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := getRootDir()
			if err != nil {
				return err
			}
			fmt.Println("mfsetup: Modelforge installation and upgrade manager")
			fmt.Println()
			if _, err := os.Stat(filepath.Join(root, "version.txt")); os.IsNotExist(err) {
				fmt.Println("No installation found.")
				fmt.Println("Run 'mfsetup install --version <version> --source <dir>' to install.")
				fmt.Println("Run 'mfsetup --help' for the full reference.")
			} else {
				fmt.Println("Tip: Run 'mfsetup status' to inspect the installation.")
				fmt.Println("     Run 'mfsetup verify' to check module integrity.")
				fmt.Println("     Run 'mfsetup --help' for all commands.")
			}
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "application root (default: ~/.modelforge)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getRootDir returns the application root, using the flag value or default.
func getRootDir() (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".modelforge"), nil
}
