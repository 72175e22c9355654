package migrate

// Step is a single version-to-version migration edge.
type Step struct {
	From string
	To   string
	SQL  []string
}

// pathTable holds the individual version-step edges, keyed by source
// version. Composite upgrades are resolved by walking the chain. Steps are
// written to be safe against re-application so that a database initialized
// at a newer release is not broken by an overlapping upgrade.
var pathTable = map[string]Step{
	"0.1.0": {
		From: "0.1.0",
		To:   "0.1.1",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS tools (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    executable_path TEXT,
    arguments TEXT,
    added_at TIMESTAMP NOT NULL
)`,
		},
	},
	"0.1.1": {
		From: "0.1.1",
		To:   "0.1.2",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS cost_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_id INTEGER,
    material TEXT,
    grams REAL,
    cost REAL,
    recorded_at TIMESTAMP NOT NULL,
    FOREIGN KEY (model_id) REFERENCES models(id) ON DELETE CASCADE
)`,
			`CREATE INDEX IF NOT EXISTS idx_cost_records_model ON cost_records(model_id)`,
		},
	},
	"0.1.2": {
		From: "0.1.2",
		To:   "1.0.0",
		SQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_models_project ON models(project_id)`,
			`CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id)`,
		},
	},
	"1.0.0": {
		From: "1.0.0",
		To:   "1.1.0",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS projects_new (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    archived BOOLEAN DEFAULT 0,
    created_at TIMESTAMP NOT NULL
)`,
			`INSERT OR IGNORE INTO projects_new (id, name, description, created_at)
    SELECT id, name, description, created_at FROM projects`,
			`DROP TABLE projects`,
			`ALTER TABLE projects_new RENAME TO projects`,
		},
	},
}

// ResolvePath walks the edge table from one version to another and returns
// the ordered list of steps. An unknown pair yields an empty list, not an
// error: unreachable upgrades apply zero migrations.
func ResolvePath(from, to string) []Step {
	if from == to {
		return nil
	}

	var steps []Step
	current := from
	for current != to {
		step, ok := pathTable[current]
		if !ok {
			return nil
		}
		steps = append(steps, step)
		current = step.To

		// The table is a chain; a cycle would mean a broken table. Bail
		// out once we have walked more edges than exist.
		if len(steps) > len(pathTable) {
			return nil
		}
	}
	return steps
}
