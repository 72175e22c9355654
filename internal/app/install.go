package app

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/modelforge-app/mfsetup/internal/config"
	"github.com/modelforge-app/mfsetup/internal/installer"
	"github.com/modelforge-app/mfsetup/internal/output"
	"github.com/spf13/cobra"
)

var (
	installFlagVersion  string
	installFlagMode     string
	installFlagModules  []string
	installFlagSource   string
	installFlagYes      bool
	installFlagRollback bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or upgrade Modelforge",
	Long: `Install or upgrade Modelforge in the application root.

Without --mode, the mode is selected automatically: a fresh root gets a
full installation, an existing installation gets an in-place patch.

Modes:
  full       First-time installation into an empty root
  patch      Upgrade modules and migrate data in place, backup first
  reinstall  Redeploy all modules from source, preserving data and config
  clean      Delete everything except backups and install from scratch

Destructive modes (clean) require confirmation unless --yes is given.
A full snapshot is always taken before anything is deleted.

Examples:
  # First install
  mfsetup install --version 1.0.0 --source ./dist

  # Upgrade in place
  mfsetup install --version 1.1.0 --source ./dist

  # Only deploy selected modules
  mfsetup install --version 1.1.0 --source ./dist --modules core,render

  # Start over, keeping backups
  mfsetup install --version 1.1.0 --source ./dist --mode clean --yes`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installFlagVersion, "version", "", "version to install (required)")
	installCmd.Flags().StringVar(&installFlagMode, "mode", "", "installation mode: full, patch, reinstall, clean (default: auto)")
	installCmd.Flags().StringSliceVar(&installFlagModules, "modules", nil, "modules to install (default: all)")
	installCmd.Flags().StringVar(&installFlagSource, "source", "", "directory with staged module trees (required)")
	installCmd.Flags().BoolVar(&installFlagYes, "yes", false, "Skip confirmation prompts")
	installCmd.Flags().BoolVar(&installFlagRollback, "rollback-on-failure", false, "Restore the pre-operation backup if the operation fails")

	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	if installFlagVersion == "" {
		return fmt.Errorf("--version is required")
	}
	if installFlagSource == "" {
		return fmt.Errorf("--source is required")
	}

	root, err := getRootDir()
	if err != nil {
		return err
	}

	logger, closer, err := openInstallLog(root)
	if err != nil {
		return err
	}
	defer closer.Close()

	mods := installFlagModules
	if len(mods) == 0 {
		mods = installer.DefaultModules
	}

	bar := output.NewProgress(len(mods), "Deploying modules")
	in := newInstallerWithSource(root, logger, func(name string) {
		bar.SetDescription("Deployed " + name)
		bar.Increment()
	})

	// Resolve mode: explicit flag wins, otherwise detect.
	var mode installer.Mode
	if installFlagMode != "" {
		mode, err = installer.ParseMode(installFlagMode)
		if err != nil {
			return err
		}
	} else {
		existing, err := in.DetectInstallation()
		if err != nil {
			return fmt.Errorf("failed to detect installation: %w", err)
		}
		mode = installer.SelectMode(existing)
	}

	if mode.Destructive() && !installFlagYes {
		if !confirmDestructive(mode) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	fmt.Printf("Installing %s %s (mode: %s, modules: %s)\n",
		installer.DefaultAppName, installFlagVersion, mode, strings.Join(mods, ", "))

	if err := in.Install(mode, installFlagVersion, mods); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}
	bar.Finish()

	fmt.Printf("✓ %s %s installed (%s)\n", installer.DefaultAppName, installFlagVersion, mode)
	return nil
}

// newInstallerWithSource is newInstaller plus the install-only options
// that have no place in settings.yaml.
func newInstallerWithSource(root string, logger *slog.Logger, onModule func(string)) *installer.Installer {
	paths := installer.DefaultPaths(root)

	settings, err := config.Load(paths.Config)
	if err != nil {
		settings = config.Default()
	}

	return installer.New(root, installer.Options{
		AppName:           settings.AppName,
		SourceDir:         installFlagSource,
		MaxBackups:        settings.MaxBackups,
		RollbackOnFailure: installFlagRollback || settings.RollbackOnFailure,
		OnModuleInstalled: onModule,
		Logger:            logger,
	})
}

// confirmDestructive prompts before a mode that deletes user data.
// It requires the literal string "yes" to proceed.
func confirmDestructive(mode installer.Mode) bool {
	warn := color.New(color.FgRed, color.Bold)
	warn.Printf("WARNING: %s install deletes all application data except backups.\n", mode)
	fmt.Println("A full backup is taken first, but restoring it is a manual step.")
	fmt.Print("Type \"yes\" to confirm (or press Enter to cancel): ")

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
