package installer

import "fmt"

// Mode selects one of the four mutually exclusive installation pipelines.
// Modes are chosen per invocation and never persisted.
type Mode int

const (
	// ModeFullInstall installs into a fresh environment.
	ModeFullInstall Mode = iota

	// ModePatch incrementally updates an existing installation.
	ModePatch

	// ModeReinstall reinstalls application files while preserving the
	// user-data and configuration trees.
	ModeReinstall

	// ModeCleanInstall deletes everything except backups first, then
	// installs from scratch.
	ModeCleanInstall
)

// String returns the CLI-facing name of a mode.
func (m Mode) String() string {
	switch m {
	case ModeFullInstall:
		return "full"
	case ModePatch:
		return "patch"
	case ModeReinstall:
		return "reinstall"
	case ModeCleanInstall:
		return "clean"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Destructive reports whether a mode removes pre-existing application
// files.
func (m Mode) Destructive() bool {
	return m == ModeReinstall || m == ModeCleanInstall
}

// ParseMode maps a CLI mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "full":
		return ModeFullInstall, nil
	case "patch":
		return ModePatch, nil
	case "reinstall":
		return ModeReinstall, nil
	case "clean":
		return ModeCleanInstall, nil
	default:
		return 0, fmt.Errorf("unknown installation mode %q (expected full, patch, reinstall, or clean)", s)
	}
}

// strategy is the shared contract for the four mode pipelines. Execute
// either completes every step of its pipeline or returns the error that
// aborted it; side effects are exclusively filesystem and manifest
// mutations.
type strategy interface {
	Execute(version string, modules []string) error
}
