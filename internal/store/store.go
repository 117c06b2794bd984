package store

import (
	"context"

	"github.com/me/wsrun/pkg/model"
)

// Store persists the history of foreach runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Task results
	RecordTask(ctx context.Context, runID string, seq int, task model.TaskResult) error
	ListTasksByRun(ctx context.Context, runID string) ([]model.TaskResult, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
