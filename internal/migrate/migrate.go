// Package migrate manages the Modelforge data store: schema creation,
// version-to-version migration, and migration history bookkeeping. The
// data store is SQLite; the migration history table is append-only and
// the current schema version is the version of its newest record.
package migrate

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// Migration types recorded in history.
const (
	TypeInitial = "initial"
	TypeUpgrade = "upgrade"
)

// Record is one migration history entry.
type Record struct {
	Version     string
	Type        string
	AppliedDate time.Time
}

// Manager applies migrations to the data store at a fixed path.
type Manager struct {
	dbPath string
	logger *slog.Logger
}

// New creates a migration Manager for the database at dbPath.
func New(dbPath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dbPath: dbPath, logger: logger}
}

// DatabaseExists reports whether the data store file is present.
func (m *Manager) DatabaseExists() bool {
	_, err := os.Stat(m.dbPath)
	return err == nil
}

// open opens the data store with the connection settings the rest of the
// application uses: single writer, foreign keys on, WAL journaling.
func (m *Manager) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// InitializeDatabase creates the data-store schema from scratch and
// appends an initial migration record for the given application version.
func (m *Manager) InitializeDatabase(version string) error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := appendRecord(db, version, TypeInitial); err != nil {
		return err
	}

	m.logger.Info("database initialized", "path", m.dbPath, "version", version)
	return nil
}

// ApplyMigrations brings the data store from one version to another. If no
// data store exists yet, it initializes one at the target version instead.
// An unresolvable version pair applies zero migrations but still records
// the upgrade, keeping the schema version in step with the application.
// A same-version pair on an existing data store is a no-op.
func (m *Manager) ApplyMigrations(from, to string) error {
	if !m.DatabaseExists() {
		m.logger.Info("no data store found, initializing", "version", to)
		return m.InitializeDatabase(to)
	}

	// A same-version patch has nothing to migrate and nothing to record;
	// re-patching must not grow the history.
	if from == to {
		m.logger.Info("data store already at target version", "version", to)
		return nil
	}

	steps := ResolvePath(from, to)
	if len(steps) == 0 {
		m.logger.Warn("no migration path found, applying zero migrations",
			"from", from, "to", to)
	}

	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	// Table rebuilds in the path table need foreign-key enforcement off
	// for the duration of the steps.
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys: %w", err)
	}

	for _, step := range steps {
		m.logger.Info("applying migration step", "from", step.From, "to", step.To)
		for _, stmt := range step.SQL {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %s -> %s: %w", step.From, step.To, err)
			}
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to re-enable foreign keys: %w", err)
	}

	if err := appendRecord(db, to, TypeUpgrade); err != nil {
		return err
	}

	m.logger.Info("migrations applied", "from", from, "to", to, "steps", len(steps))
	return nil
}

// History returns all migration records, newest first. A missing data
// store yields an empty history.
func (m *Manager) History() ([]*Record, error) {
	if !m.DatabaseExists() {
		return nil, nil
	}

	db, err := m.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT version, migration_type, applied_date
		FROM migration_history
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var applied string
		if err := rows.Scan(&rec.Version, &rec.Type, &applied); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		rec.AppliedDate, err = time.Parse(time.RFC3339, applied)
		if err != nil {
			return nil, fmt.Errorf("failed to parse applied_date: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}

	return records, nil
}

// CurrentSchemaVersion returns the version of the most recent history
// record, or "" when the data store does not exist.
func (m *Manager) CurrentSchemaVersion() (string, error) {
	if !m.DatabaseExists() {
		return "", nil
	}

	db, err := m.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	var version string
	err = db.QueryRow(`
		SELECT version FROM migration_history
		ORDER BY id DESC LIMIT 1
	`).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}

	return version, nil
}

func appendRecord(db *sql.DB, version, migrationType string) error {
	_, err := db.Exec(`
		INSERT INTO migration_history (version, migration_type, applied_date)
		VALUES (?, ?, ?)
	`, version, migrationType, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append migration record: %w", err)
	}
	return nil
}
