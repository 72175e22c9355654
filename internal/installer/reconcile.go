package installer

import (
	"os"
	"sort"
)

// ReconcileReport is the result of comparing the manifest's module map
// against the module directories actually on disk. The manifest's keys
// define what is registered; the disk is reconciled against them.
type ReconcileReport struct {
	// Verified modules are registered and have a non-empty directory.
	Verified []string

	// RegisteredMissing modules are in the manifest but have no usable
	// directory under the module root.
	RegisteredMissing []string

	// UnregisteredPresent directories exist under the module root but
	// have no manifest record.
	UnregisteredPresent []string
}

// Clean reports whether the manifest and disk agree.
func (r *ReconcileReport) Clean() bool {
	return len(r.RegisteredMissing) == 0 && len(r.UnregisteredPresent) == 0
}

// Reconcile compares registered modules with the on-disk module tree.
func (i *Installer) Reconcile() (*ReconcileReport, error) {
	registered, err := i.registry.AllModules()
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, name := range registered {
		if i.modules.Verify(name) {
			report.Verified = append(report.Verified, name)
		} else {
			report.RegisteredMissing = append(report.RegisteredMissing, name)
		}
	}

	onDisk, err := i.modules.List()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(registered))
	for _, name := range registered {
		known[name] = true
	}
	for _, name := range onDisk {
		if !known[name] {
			report.UnregisteredPresent = append(report.UnregisteredPresent, name)
		}
	}

	sort.Strings(report.UnregisteredPresent)

	if !report.Clean() {
		i.logger.Warn("manifest and module tree disagree",
			"registered_missing", report.RegisteredMissing,
			"unregistered_present", report.UnregisteredPresent)
	}
	return report, nil
}

// InstallationExists is a fast existence check over the version marker.
func (i *Installer) InstallationExists() bool {
	_, err := os.Stat(i.paths.Version)
	return err == nil
}
