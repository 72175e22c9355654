package app

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/modelforge-app/mfsetup/internal/output"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect and manage installed modules",
	Long: `Inspect and manage the modules deployed under <root>/modules.

Examples:
  mfsetup modules list
  mfsetup modules info core
  mfsetup modules remove viewer`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules and their registry state",
	RunE:  runModulesList,
}

var modulesInfoCmd = &cobra.Command{
	Use:   "info <module>",
	Short: "Show details for one module",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesInfo,
}

var modulesRemoveCmd = &cobra.Command{
	Use:   "remove <module>",
	Short: "Remove a module's files and unregister it",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesRemove,
}

func init() {
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesInfoCmd)
	modulesCmd.AddCommand(modulesRemoveCmd)
	RootCmd.AddCommand(modulesCmd)
}

func runModulesList(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	rows, err := moduleRows(in)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderModuleTable(rows))
	return nil
}

func runModulesInfo(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	info, err := in.Modules().GetInfo(args[0])
	if err != nil {
		return fmt.Errorf("failed to read module info: %w", err)
	}

	fmt.Printf("Module:     %s\n", info.Name)
	fmt.Printf("Path:       %s\n", info.Path)
	if info.Installed {
		fmt.Printf("Version:    %s\n", info.Version)
		if !info.InstallDate.IsZero() {
			fmt.Printf("Installed:  %s\n", humanize.Time(info.InstallDate))
		}
	} else {
		fmt.Println("Registered: no")
	}
	fmt.Printf("Files:      %d\n", info.FileCount)
	fmt.Printf("Size:       %s\n", humanize.Bytes(uint64(info.SizeBytes)))
	if !in.Modules().Verify(info.Name) {
		fmt.Println("State:      ⚠ missing or empty on disk")
	}
	return nil
}

func runModulesRemove(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	if err := in.Modules().Remove(args[0]); err != nil {
		return fmt.Errorf("failed to remove module: %w", err)
	}
	fmt.Printf("✓ Removed module %s\n", args[0])
	return nil
}
