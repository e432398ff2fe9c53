package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMigratesToLatest(t *testing.T) {
	db := openTestDB(t)

	v, err := schemaVersion(db.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != latestVersion() {
		t.Errorf("version = %d, want %d", v, latestVersion())
	}

	for _, name := range []string{"runs", "passes", "idx_passes_run", "idx_runs_started"} {
		var n int
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name).Scan(&n); err != nil {
			t.Fatalf("looking up %s: %v", name, err)
		}
		if n != 1 {
			t.Errorf("%s not created", name)
		}
	}
}

func TestOpenTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := first.InsertRun("run-1", t0, false); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	run, err := second.GetRun("run-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun after reopen: %v, %v", run, err)
	}
}

func TestMigrateUpgradesFromFirstVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := apply(conn, migrations[0]); err != nil {
		t.Fatalf("apply v1: %v", err)
	}
	conn.Close()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	v, err := schemaVersion(db.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}

func TestSchemaVersionOfEmptyDB(t *testing.T) {
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	v, err := schemaVersion(conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != 0 {
		t.Errorf("version = %d, want 0", v)
	}
}
