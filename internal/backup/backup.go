// Package backup creates and restores timestamped snapshots of the
// installation state. A snapshot always contains the manifest, the version
// marker, and a metadata record; reinstall and clean-install flows add the
// user-data and configuration trees. Snapshots are write-once: once
// created they are never mutated, only deleted by retention pruning.
package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/modelforge-app/mfsetup/internal/fsutil"
	"github.com/modelforge-app/mfsetup/internal/manifest"
)

// DefaultMaxBackups is how many snapshots retention keeps when the caller
// does not configure a limit.
const DefaultMaxBackups = 5

const (
	metadataFile = "backup.json"
	manifestFile = "manifest.json"
	versionFile  = "version.txt"
	dataSubdir   = "data"
	configSubdir = "config"
)

// Metadata is the small record written into every snapshot directory.
type Metadata struct {
	BackupName string    `json:"backup_name"`
	Created    time.Time `json:"created"`
	Version    string    `json:"version"`
}

// Snapshot describes one retained backup for listing.
type Snapshot struct {
	Name      string
	Path      string
	Created   time.Time
	Version   string
	HasData   bool
	SizeBytes int64
}

// Manager creates, verifies, restores, lists, and prunes snapshots.
type Manager struct {
	store      *manifest.Store
	rootDir    string
	backupDir  string
	dataDir    string
	configDir  string
	maxBackups int
	logger     *slog.Logger
}

// New creates a backup Manager. maxBackups <= 0 selects the default
// retention limit.
func New(store *manifest.Store, rootDir, backupDir, dataDir, configDir string, maxBackups int, logger *slog.Logger) *Manager {
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		rootDir:    rootDir,
		backupDir:  backupDir,
		dataDir:    dataDir,
		configDir:  configDir,
		maxBackups: maxBackups,
		logger:     logger,
	}
}

// Create creates a snapshot of the manifest and version marker. An empty
// name selects a timestamp-derived one. Returns the snapshot path, or an
// error on any I/O failure; callers decide whether a failed backup aborts
// their pipeline.
func (m *Manager) Create(name string) (string, error) {
	return m.create(name, false)
}

// CreateWithData creates a snapshot that additionally contains copies of
// the user-data and configuration trees. Used before reinstall and
// clean-install runs.
func (m *Manager) CreateWithData(name string) (string, error) {
	return m.create(name, true)
}

func (m *Manager) create(name string, withData bool) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	if name == "" {
		name = time.Now().Format("2006-01-02-150405")
	}

	snapshotPath, name, err := m.newSnapshotDir(name)
	if err != nil {
		return "", err
	}

	// Capture the current version for the metadata record. A missing
	// marker is tolerated so that pre-install states can still be
	// snapshotted.
	version := ""
	if m.store.VersionExists() {
		v, err := m.store.ReadVersion()
		if err != nil {
			os.RemoveAll(snapshotPath)
			return "", fmt.Errorf("failed to read version marker: %w", err)
		}
		version = v

		if err := fsutil.CopyFile(m.store.VersionPath(), filepath.Join(snapshotPath, versionFile)); err != nil {
			os.RemoveAll(snapshotPath)
			return "", fmt.Errorf("failed to copy version marker: %w", err)
		}
	}

	if _, err := os.Stat(m.store.ManifestPath()); err == nil {
		if err := fsutil.CopyFile(m.store.ManifestPath(), filepath.Join(snapshotPath, manifestFile)); err != nil {
			os.RemoveAll(snapshotPath)
			return "", fmt.Errorf("failed to copy manifest: %w", err)
		}
	}

	if withData {
		if _, err := os.Stat(m.dataDir); err == nil {
			if err := fsutil.CopyDir(m.dataDir, filepath.Join(snapshotPath, dataSubdir)); err != nil {
				os.RemoveAll(snapshotPath)
				return "", fmt.Errorf("failed to copy data tree: %w", err)
			}
		}
		if _, err := os.Stat(m.configDir); err == nil {
			if err := fsutil.CopyDir(m.configDir, filepath.Join(snapshotPath, configSubdir)); err != nil {
				os.RemoveAll(snapshotPath)
				return "", fmt.Errorf("failed to copy config tree: %w", err)
			}
		}
	}

	return m.finalize(snapshotPath, name, version, withData)
}

// newSnapshotDir creates the snapshot directory, appending a numeric
// suffix when the name is already taken. Timestamp-named snapshots
// collide when two are created within the same second; silently reusing
// the directory would overwrite the earlier snapshot.
func (m *Manager) newSnapshotDir(name string) (string, string, error) {
	candidate := name
	for n := 2; ; n++ {
		path := filepath.Join(m.backupDir, candidate)
		err := os.Mkdir(path, 0755)
		if err == nil {
			return path, candidate, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d", name, n)
	}
}

// CreateFull creates a snapshot of the entire application root. The backup
// directory itself is always excluded to avoid nesting snapshots inside
// snapshots; additional top-level names (such as the install lock) can be
// excluded by the caller. Clean install takes one of these before its
// deletion pass.
func (m *Manager) CreateFull(name string, exclude ...string) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	if name == "" {
		name = time.Now().Format("2006-01-02-150405")
	}

	snapshotPath, name, err := m.newSnapshotDir(name)
	if err != nil {
		return "", err
	}

	skip := map[string]bool{filepath.Base(m.backupDir): true}
	for _, ex := range exclude {
		skip[ex] = true
	}

	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		os.RemoveAll(snapshotPath)
		return "", fmt.Errorf("failed to read application root: %w", err)
	}

	for _, entry := range entries {
		if skip[entry.Name()] {
			continue
		}
		src := filepath.Join(m.rootDir, entry.Name())
		dst := filepath.Join(snapshotPath, entry.Name())

		if entry.IsDir() {
			err = fsutil.CopyDir(src, dst)
		} else {
			err = fsutil.CopyFile(src, dst)
		}
		if err != nil {
			os.RemoveAll(snapshotPath)
			return "", fmt.Errorf("failed to copy %s: %w", entry.Name(), err)
		}
	}

	version := ""
	if m.store.VersionExists() {
		if v, err := m.store.ReadVersion(); err == nil {
			version = v
		}
	}

	return m.finalize(snapshotPath, name, version, true)
}

// finalize writes the metadata record, logs, and runs retention pruning.
func (m *Manager) finalize(snapshotPath, name, version string, withData bool) (string, error) {
	meta := &Metadata{
		BackupName: name,
		Created:    time.Now(),
		Version:    version,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		os.RemoveAll(snapshotPath)
		return "", fmt.Errorf("failed to marshal backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapshotPath, metadataFile), metaJSON, 0644); err != nil {
		os.RemoveAll(snapshotPath)
		return "", fmt.Errorf("failed to write backup metadata: %w", err)
	}

	m.logger.Info("backup created", "name", name, "path", snapshotPath, "with_data", withData)

	if err := m.prune(); err != nil {
		// Retention failure does not invalidate the snapshot just created.
		m.logger.Warn("backup retention pruning failed", "error", err)
	}

	return snapshotPath, nil
}

// Verify checks that a snapshot directory exists and its required files
// are present and parseable. Missing optional files (data/config trees)
// only produce warnings.
func (m *Manager) Verify(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		m.logger.Warn("backup verification failed: snapshot directory missing", "path", path)
		return false
	}

	meta, err := readMetadata(path)
	if err != nil {
		m.logger.Warn("backup verification failed: bad metadata", "path", path, "error", err)
		return false
	}

	manifestPath := filepath.Join(path, manifestFile)
	if data, err := os.ReadFile(manifestPath); err == nil {
		var doc manifest.Manifest
		if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
			m.logger.Warn("backup verification failed: unparseable manifest copy", "path", path, "error", jsonErr)
			return false
		}
	} else {
		m.logger.Warn("backup has no manifest copy", "path", path, "backup", meta.BackupName)
	}

	if _, err := os.Stat(filepath.Join(path, versionFile)); err != nil {
		m.logger.Warn("backup has no version marker copy", "path", path, "backup", meta.BackupName)
	}

	return true
}

// Restore verifies a snapshot and copies its manifest and version marker
// back over the live paths. If the snapshot carries data/config trees,
// those are restored as well.
func (m *Manager) Restore(path string) error {
	if !m.Verify(path) {
		return fmt.Errorf("backup verification failed for %s", path)
	}

	if src := filepath.Join(path, manifestFile); fileExists(src) {
		if err := fsutil.CopyFile(src, m.store.ManifestPath()); err != nil {
			return fmt.Errorf("failed to restore manifest: %w", err)
		}
	}

	if src := filepath.Join(path, versionFile); fileExists(src) {
		if err := fsutil.CopyFile(src, m.store.VersionPath()); err != nil {
			return fmt.Errorf("failed to restore version marker: %w", err)
		}
	}

	if src := filepath.Join(path, dataSubdir); dirExists(src) {
		if err := fsutil.CopyDir(src, m.dataDir); err != nil {
			return fmt.Errorf("failed to restore data tree: %w", err)
		}
	}

	if src := filepath.Join(path, configSubdir); dirExists(src) {
		if err := fsutil.CopyDir(src, m.configDir); err != nil {
			return fmt.Errorf("failed to restore config tree: %w", err)
		}
	}

	// Full snapshots carry the module tree as well; bring it back so a
	// restored clean-install failure leaves a runnable installation.
	if src := filepath.Join(path, "modules"); dirExists(src) {
		if err := fsutil.CopyDir(src, filepath.Join(m.rootDir, "modules")); err != nil {
			return fmt.Errorf("failed to restore module tree: %w", err)
		}
	}

	m.logger.Info("backup restored", "path", path)
	return nil
}

// RestoreData copies only the data and config trees out of a snapshot,
// leaving the live manifest and version marker alone. Reinstall uses this
// after its fresh-install sub-pipeline.
func (m *Manager) RestoreData(path string) error {
	if !m.Verify(path) {
		return fmt.Errorf("backup verification failed for %s", path)
	}

	if src := filepath.Join(path, dataSubdir); dirExists(src) {
		if err := fsutil.CopyDir(src, m.dataDir); err != nil {
			return fmt.Errorf("failed to restore data tree: %w", err)
		}
	}
	if src := filepath.Join(path, configSubdir); dirExists(src) {
		if err := fsutil.CopyDir(src, m.configDir); err != nil {
			return fmt.Errorf("failed to restore config tree: %w", err)
		}
	}

	m.logger.Info("backup data restored", "path", path)
	return nil
}

// List returns all snapshots sorted oldest to newest by name. Timestamp
// names make that creation order.
func (m *Manager) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	snapshots := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.backupDir, entry.Name())
		snap := &Snapshot{
			Name: entry.Name(),
			Path: path,
		}

		if meta, err := readMetadata(path); err == nil {
			snap.Created = meta.Created
			snap.Version = meta.Version
		}
		snap.HasData = dirExists(filepath.Join(path, dataSubdir))
		if size, err := fsutil.DirSize(path); err == nil {
			snap.SizeBytes = size
		}

		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots, nil
}

// Latest returns the most recent snapshot, or nil when none exist.
func (m *Manager) Latest() (*Snapshot, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return snapshots[len(snapshots)-1], nil
}

// Delete removes a snapshot directory. Deleting an absent snapshot is
// not an error.
func (m *Manager) Delete(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete backup %s: %w", path, err)
	}
	return nil
}

// prune removes the oldest snapshots beyond the retention limit.
func (m *Manager) prune() error {
	snapshots, err := m.List()
	if err != nil {
		return err
	}

	for len(snapshots) > m.maxBackups {
		oldest := snapshots[0]
		if err := m.Delete(oldest.Path); err != nil {
			return err
		}
		m.logger.Info("pruned old backup", "name", oldest.Name)
		snapshots = snapshots[1:]
	}
	return nil
}

func readMetadata(snapshotPath string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(snapshotPath, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse backup metadata: %w", err)
	}
	return &meta, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
