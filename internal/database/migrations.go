package database

import "database/sql"

// Migration is one schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations run in order; append only.
var migrations = []Migration{
	{
		Version:     1,
		Description: "runs and passes",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    dry_run INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS passes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    theme TEXT NOT NULL,
    kind TEXT NOT NULL,
    state TEXT NOT NULL,
    updated INTEGER DEFAULT 0,
    matched_count INTEGER DEFAULT 0,
    missing TEXT,
    forwarded_count INTEGER DEFAULT 0,
    error TEXT,
    recorded_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_passes_run ON passes(run_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "index runs by start time",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`)
			return err
		},
	},
}

func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
