package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/me/wsrun/pkg/model"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeFormat is fixed-width UTC so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database, and a CLI
	// process never needs more than one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	argsJSON, err := json.Marshal(run.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	flagsJSON, err := json.Marshal(run.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	state := run.State
	if state == "" {
		state = model.RunStateRunning
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, args, cwd, root, flags, state, exit_code, error_count, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, string(argsJSON), run.Cwd, run.Root, string(flagsJSON),
		string(state), run.ExitCode, run.ErrorCount,
		run.StartedAt.UTC().Format(timeFormat), formatTimePtr(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the final state, exit code, error count and finish time.
func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "state", run.State)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, exit_code = ?, error_count = ?, finished_at = ? WHERE id = ?`,
		string(run.State), run.ExitCode, run.ErrorCount, formatTimePtr(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// GetRun returns the run with its tasks, or nil if it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	run, err := s.scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, command, args, cwd, root, flags, state, exit_code, error_count, started_at, finished_at
		 FROM runs WHERE id = ?`, id))
	if err != nil || run == nil {
		return run, err
	}

	tasks, err := s.ListTasksByRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Tasks = tasks
	run.TaskSummary = model.ComputeTaskSummary(tasks)
	return run, nil
}

// ListRuns returns the most recent runs first, without their tasks.
// A limit of zero or less returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "limit", limit)
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, args, cwd, root, flags, state, exit_code, error_count, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes all but the keep most recent runs and returns how many
// were removed. Their task rows go with them.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	s.logger.Debug("sql", "op", "delete", "table", "runs", "keep", keep)
	if keep < 0 {
		keep = 0
	}
	const stale = `SELECT id FROM runs WHERE id NOT IN (
		SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_tasks WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("prune run tasks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// --- Task results ---

// RecordTask stores the result of one task. seq is the task's position in
// the run; recording the same seq again replaces the earlier row.
func (s *SQLiteStore) RecordTask(ctx context.Context, runID string, seq int, task model.TaskResult) error {
	s.logger.Debug("sql", "op", "insert", "table", "run_tasks", "run_id", runID, "workspace", task.Workspace)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_tasks (run_id, seq, workspace, locator, state, exit_code, round, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, task.Workspace, task.Locator, string(task.State), task.ExitCode,
		task.Round, task.Error, formatTimePtr(task.StartedAt), formatTimePtr(task.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task %s for run %s: %w", task.Workspace, runID, err)
	}
	return nil
}

// ListTasksByRun returns a run's task results in recorded order.
func (s *SQLiteStore) ListTasksByRun(ctx context.Context, runID string) ([]model.TaskResult, error) {
	s.logger.Debug("sql", "op", "select", "table", "run_tasks", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT workspace, locator, state, exit_code, round, error, started_at, finished_at
		 FROM run_tasks WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for run %s: %w", runID, err)
	}
	defer rows.Close()

	var tasks []model.TaskResult
	for rows.Next() {
		var t model.TaskResult
		var state string
		var startedAt, finishedAt *string
		if err := rows.Scan(&t.Workspace, &t.Locator, &state, &t.ExitCode, &t.Round, &t.Error, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		t.State = model.TaskState(state)
		t.StartedAt = parseTimePtr(startedAt)
		t.FinishedAt = parseTimePtr(finishedAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRun(row scanner) (*model.Run, error) {
	var run model.Run
	var argsJSON, flagsJSON, state, startedAt string
	var finishedAt *string

	err := row.Scan(
		&run.ID, &run.Command, &argsJSON, &run.Cwd, &run.Root, &flagsJSON,
		&state, &run.ExitCode, &run.ErrorCount, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &run.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	run.State = model.RunState(state)
	run.StartedAt, _ = time.Parse(timeFormat, startedAt)
	run.FinishedAt = parseTimePtr(finishedAt)
	return &run, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(timeFormat, *s)
	if err != nil {
		return nil
	}
	return &t
}
