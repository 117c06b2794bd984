package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all history tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		command     TEXT NOT NULL,
		args        TEXT NOT NULL DEFAULT '[]',
		cwd         TEXT NOT NULL DEFAULT '',
		root        TEXT NOT NULL DEFAULT '',
		flags       TEXT NOT NULL DEFAULT '{}',
		state       TEXT NOT NULL DEFAULT 'RUNNING',
		exit_code   INTEGER,
		error_count INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS run_tasks (
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		workspace   TEXT NOT NULL,
		locator     TEXT NOT NULL,
		state       TEXT NOT NULL,
		exit_code   INTEGER,
		round       INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		started_at  TEXT,
		finished_at TEXT,
		PRIMARY KEY (run_id, seq)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
