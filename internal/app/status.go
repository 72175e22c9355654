package app

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/modelforge-app/mfsetup/internal/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installation status",
	Long: `Show the current Modelforge installation: version, install and
update timestamps, registered modules, and any drift between the
manifest and the module directories on disk.

Examples:
  mfsetup status
  mfsetup status --root /opt/modelforge`,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}

	in := newInstaller(root, quietLogger())

	status, err := in.GetInstallationInfo()
	if err != nil {
		return fmt.Errorf("failed to read installation: %w", err)
	}

	if !status.Installed {
		fmt.Printf("No installation found at %s\n", root)
		fmt.Println("Run 'mfsetup install --version <version> --source <dir>' to install.")
		return nil
	}

	fmt.Println("Installation Status")
	fmt.Println(strings.Repeat("═", 40))
	fmt.Printf("Root:       %s\n", root)
	fmt.Printf("Version:    %s\n", status.Version)
	if status.InstallDate != nil {
		fmt.Printf("Installed:  %s\n", humanize.Time(*status.InstallDate))
	}
	if status.LastUpdate != nil {
		fmt.Printf("Updated:    %s\n", humanize.Time(*status.LastUpdate))
	}
	fmt.Println()

	rows, err := moduleRows(in)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderModuleTable(rows))

	report, err := in.Reconcile()
	if err != nil {
		return fmt.Errorf("failed to reconcile modules: %w", err)
	}
	if !report.Clean() {
		fmt.Println()
		fmt.Println("⚠  Manifest and disk disagree. Run 'mfsetup verify' for details.")
	}

	return nil
}
