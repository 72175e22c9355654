package app

import (
	"fmt"
	"path/filepath"

	"github.com/modelforge-app/mfsetup/internal/backup"
	"github.com/modelforge-app/mfsetup/internal/output"
	"github.com/spf13/cobra"
)

var backupFlagWithData bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage installation backups",
	Long: `Create, list, verify, restore, and delete installation backups.

A backup is a snapshot directory under <root>/backups containing the
manifest, the version marker, and optionally the data and config
directories. Retention is bounded: the oldest snapshots are pruned
once the configured limit is exceeded.

Examples:
  # Snapshot before a manual experiment
  mfsetup backup create pre-experiment --with-data

  # See what is retained
  mfsetup backup list

  # Roll back to the most recent snapshot
  mfsetup backup restore latest`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a backup",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained backups",
	RunE:  runBackupList,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify <name|latest>",
	Short: "Verify a backup's integrity",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupVerify,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name|latest>",
	Short: "Restore a backup over the current installation",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

func init() {
	backupCreateCmd.Flags().BoolVar(&backupFlagWithData, "with-data", false, "Include the data and config directories")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	RootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	var path string
	if backupFlagWithData {
		path, err = in.Backups().CreateWithData(name)
	} else {
		path, err = in.Backups().Create(name)
	}
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	fmt.Printf("✓ Backup created: %s\n", filepath.Base(path))
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	snaps, err := in.Backups().List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	rows := make([]output.BackupRow, len(snaps))
	for i, s := range snaps {
		rows[i] = output.BackupRow{
			Name:      s.Name,
			Created:   s.Created,
			Version:   s.Version,
			HasData:   s.HasData,
			SizeBytes: s.SizeBytes,
		}
	}
	fmt.Print(output.RenderBackupTable(rows))
	return nil
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	snap, err := resolveBackup(in.Backups(), args[0])
	if err != nil {
		return err
	}

	if !in.Backups().Verify(snap.Path) {
		return fmt.Errorf("backup %s failed verification", snap.Name)
	}
	fmt.Printf("✓ Backup %s is valid\n", snap.Name)
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	snap, err := resolveBackup(in.Backups(), args[0])
	if err != nil {
		return err
	}

	if err := in.Backups().Restore(snap.Path); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	fmt.Printf("✓ Restored backup %s (version %s)\n", snap.Name, snap.Version)
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	snap, err := resolveBackup(in.Backups(), args[0])
	if err != nil {
		return err
	}

	if err := in.Backups().Delete(snap.Path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	fmt.Printf("✓ Deleted backup %s\n", snap.Name)
	return nil
}

// resolveBackup maps a backup argument to a snapshot. The literal
// "latest" selects the most recent one.
func resolveBackup(mgr *backup.Manager, arg string) (*backup.Snapshot, error) {
	if arg == "latest" {
		snap, err := mgr.Latest()
		if err != nil {
			return nil, fmt.Errorf("failed to find latest backup: %w", err)
		}
		if snap == nil {
			return nil, fmt.Errorf("no backups found")
		}
		return snap, nil
	}

	snaps, err := mgr.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	for _, s := range snaps {
		if s.Name == arg {
			return s, nil
		}
	}
	return nil, fmt.Errorf("backup %q not found", arg)
}
