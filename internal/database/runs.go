package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// InsertRun records the start of a run.
func (db *DB) InsertRun(id string, startedAt time.Time, dryRun bool) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)`,
		id, startedAt.UTC().Format(time.RFC3339), boolInt(dryRun),
	)
	return err
}

// FinishRun stamps the run's end time.
func (db *DB) FinishRun(id string, finishedAt time.Time) error {
	res, err := db.conn.Exec(
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// InsertPass appends a pass outcome to a run.
func (db *DB) InsertPass(p Pass) (int64, error) {
	var missingJSON *string
	if p.Missing != nil {
		data, err := json.Marshal(p.Missing)
		if err != nil {
			return 0, err
		}
		s := string(data)
		missingJSON = &s
	}

	res, err := db.conn.Exec(
		`INSERT INTO passes
		(run_id, theme, kind, state, updated, matched_count, missing, forwarded_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.Theme, p.Kind, p.State, boolInt(p.Updated), p.MatchedCount, missingJSON, p.ForwardedCount, p.Error,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentRuns returns the latest runs, newest first, with pass counts.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT r.id, r.started_at, r.finished_at, r.dry_run,
			COUNT(p.id), COALESCE(SUM(p.updated), 0)
		FROM runs r
		LEFT JOIN passes p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished *string
		var dryRun int
		if err := rows.Scan(&r.ID, &started, &finished, &dryRun, &r.Passes, &r.Updated); err != nil {
			return nil, err
		}
		r.DryRun = dryRun != 0
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if finished != nil {
			t, err := time.Parse(time.RFC3339, *finished)
			if err == nil {
				r.FinishedAt = &t
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by id, or nil when it does not exist. A unique id
// prefix is accepted.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT r.id, r.started_at, r.finished_at, r.dry_run,
			(SELECT COUNT(*) FROM passes p WHERE p.run_id = r.id),
			(SELECT COALESCE(SUM(p.updated), 0) FROM passes p WHERE p.run_id = r.id)
		FROM runs r WHERE r.id LIKE ? || '%'
		ORDER BY r.started_at DESC LIMIT 1`, id,
	)

	var r Run
	var started string
	var finished *string
	var dryRun int
	if err := row.Scan(&r.ID, &started, &finished, &dryRun, &r.Passes, &r.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.DryRun = dryRun != 0
	var err error
	if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if finished != nil {
		if t, err := time.Parse(time.RFC3339, *finished); err == nil {
			r.FinishedAt = &t
		}
	}
	return &r, nil
}

// PassesForRun returns a run's passes in recording order.
func (db *DB) PassesForRun(runID string) ([]Pass, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, theme, kind, state, updated, matched_count, missing, forwarded_count, error
		FROM passes WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passes []Pass
	for rows.Next() {
		var p Pass
		var updated int
		var missingJSON *string
		if err := rows.Scan(&p.ID, &p.RunID, &p.Theme, &p.Kind, &p.State, &updated,
			&p.MatchedCount, &missingJSON, &p.ForwardedCount, &p.Error); err != nil {
			return nil, err
		}
		p.Updated = updated != 0
		if missingJSON != nil {
			if err := json.Unmarshal([]byte(*missingJSON), &p.Missing); err != nil {
				p.Missing = nil
			}
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
