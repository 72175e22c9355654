package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// ModuleRow is one row of the modules table.
type ModuleRow struct {
	Name      string
	Version   string
	Installed bool
	OnDisk    bool
	SizeBytes int64
	FileCount int
}

// RenderModuleTable renders the installed-modules table. Rows are
// expected pre-sorted by the caller.
func RenderModuleTable(rows []ModuleRow) string {
	if len(rows) == 0 {
		return "No modules installed.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-10s %-9s %-7s %s\n",
		"Module", "Version", "Size", "Files", "State"))
	sb.WriteString(strings.Repeat("─", 56))
	sb.WriteString("\n")

	for _, row := range rows {
		state := moduleState(row)
		sb.WriteString(fmt.Sprintf("%-16s %-10s %-9s %-7d %s\n",
			truncate(row.Name, 16),
			row.Version,
			humanize.Bytes(uint64(row.SizeBytes)),
			row.FileCount,
			state))
	}
	return sb.String()
}

// moduleState renders the registry/disk agreement for one module.
func moduleState(row ModuleRow) string {
	switch {
	case row.Installed && row.OnDisk:
		return colorize(colorGreen, "✓ ok")
	case row.Installed && !row.OnDisk:
		return colorize(colorRed, "⚠ missing on disk")
	case !row.Installed && row.OnDisk:
		return colorize(colorYellow, "~ unregistered")
	default:
		return "not installed"
	}
}

// BackupRow is one row of the backups table.
type BackupRow struct {
	Name      string
	Created   time.Time
	Version   string
	HasData   bool
	SizeBytes int64
}

// RenderBackupTable renders snapshots newest first.
func RenderBackupTable(rows []BackupRow) string {
	if len(rows) == 0 {
		return "No backups found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %-15s %-10s %-9s %s\n",
		"Backup", "Created", "Version", "Size", "Contents"))
	sb.WriteString(strings.Repeat("─", 68))
	sb.WriteString("\n")

	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]

		created := "unknown"
		if !row.Created.IsZero() {
			created = humanize.Time(row.Created)
		}
		contents := "manifest"
		if row.HasData {
			contents = "manifest + data"
		}

		sb.WriteString(fmt.Sprintf("%-20s %-15s %-10s %-9s %s\n",
			truncate(row.Name, 20),
			created,
			row.Version,
			humanize.Bytes(uint64(row.SizeBytes)),
			contents))
	}
	return sb.String()
}

// MigrationRow is one row of the migration history table.
type MigrationRow struct {
	Version string
	Type    string
	Applied time.Time
}

// RenderMigrationTable renders migration history, preserving the order
// given by the caller (newest first from the migration manager).
func RenderMigrationTable(rows []MigrationRow) string {
	if len(rows) == 0 {
		return "No migration history.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-10s %-9s %s\n", "Version", "Type", "Applied"))
	sb.WriteString(strings.Repeat("─", 48))
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%-10s %-9s %s\n",
			row.Version,
			row.Type,
			row.Applied.Format("2006-01-02 15:04:05")))
	}
	return sb.String()
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
