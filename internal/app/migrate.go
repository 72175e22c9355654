package app

import (
	"fmt"

	"github.com/modelforge-app/mfsetup/internal/output"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect data store migrations",
	Long: `Inspect the data store's migration history and schema version.

Migrations run automatically during patch installs; these commands are
read-only diagnostics.

Examples:
  mfsetup migrate history
  mfsetup migrate version`,
}

var migrateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show applied migrations, newest first",
	RunE:  runMigrateHistory,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE:  runMigrateVersion,
}

func init() {
	migrateCmd.AddCommand(migrateHistoryCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	RootCmd.AddCommand(migrateCmd)
}

func runMigrateHistory(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	records, err := in.Migrations().History()
	if err != nil {
		return fmt.Errorf("failed to read migration history: %w", err)
	}

	rows := make([]output.MigrationRow, len(records))
	for i, r := range records {
		rows[i] = output.MigrationRow{
			Version: r.Version,
			Type:    r.Type,
			Applied: r.AppliedDate,
		}
	}
	fmt.Print(output.RenderMigrationTable(rows))
	return nil
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	version, err := in.Migrations().CurrentSchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == "" {
		fmt.Println("No data store found.")
		return nil
	}
	fmt.Println(version)
	return nil
}
