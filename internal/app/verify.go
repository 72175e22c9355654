package app

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelforge-app/mfsetup/internal/installer"
	"github.com/modelforge-app/mfsetup/internal/watcher"
	"github.com/spf13/cobra"
)

var verifyFlagWatch bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify module integrity against the manifest",
	Long: `Verify that every module registered in the manifest exists on disk
and that no unregistered module directories are present.

With --watch, mfsetup keeps running and re-verifies whenever the module
tree changes, which catches manual edits to an installation as they
happen. Stop with Ctrl-C.

Examples:
  mfsetup verify
  mfsetup verify --watch`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyFlagWatch, "watch", false, "Keep running and re-verify on module tree changes")

	RootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}
	in := newInstaller(root, quietLogger())

	if !in.InstallationExists() {
		return fmt.Errorf("no installation found at %s", root)
	}

	if err := verifyOnce(in); err != nil && !verifyFlagWatch {
		return err
	}
	if !verifyFlagWatch {
		return nil
	}

	w, err := watcher.New(in.Paths().Modules, func() {
		fmt.Println()
		fmt.Println("Module tree changed, re-verifying...")
		if err := verifyOnce(in); err != nil {
			fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		}
	}, quietLogger())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Println()
	fmt.Printf("Watching %s for changes (Ctrl-C to stop)...\n", in.Paths().Modules)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// verifyOnce runs one reconcile pass and prints the result.
func verifyOnce(in *installer.Installer) error {
	report, err := in.Reconcile()
	if err != nil {
		return fmt.Errorf("failed to reconcile modules: %w", err)
	}

	for _, name := range report.Verified {
		fmt.Printf("✓ %s\n", name)
	}
	for _, name := range report.RegisteredMissing {
		fmt.Printf("✗ %s: registered but missing on disk\n", name)
	}
	for _, name := range report.UnregisteredPresent {
		fmt.Printf("~ %s: present on disk but not registered\n", name)
	}

	if report.Clean() {
		fmt.Printf("✓ All %d modules verified\n", len(report.Verified))
		return nil
	}

	var problems []string
	if n := len(report.RegisteredMissing); n > 0 {
		problems = append(problems, fmt.Sprintf("%d missing", n))
	}
	if n := len(report.UnregisteredPresent); n > 0 {
		problems = append(problems, fmt.Sprintf("%d unregistered", n))
	}
	return fmt.Errorf("verification failed: %s", strings.Join(problems, ", "))
}
