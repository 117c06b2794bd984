// Package scheduler runs one task per workspace in rounds, optionally
// holding each workspace back until the workspaces it depends on are done.
package scheduler

import (
	"context"
	"runtime"

	"github.com/me/wsrun/pkg/model"
)

// Resolver maps a dependency descriptor to the workspaces that satisfy it.
// Resolution may yield several workspaces, or none.
type Resolver interface {
	ResolveDescriptor(d model.Descriptor) []*model.Workspace
}

// Reporter is the part of the report sink the scheduler writes to.
type Reporter interface {
	ReportError(kind model.ErrorKind, text string)
	HasErrors() bool
}

// TaskFunc runs the task for one workspace and returns its exit code. An
// error means the task could not be run and aborts the whole run.
type TaskFunc func(ctx context.Context, ws *model.Workspace) (int, error)

// Options controls how a run is scheduled.
type Options struct {
	// Parallel dispatches every eligible task of a round. Otherwise only the
	// first eligible task is dispatched per round.
	Parallel bool
	// Topological holds a task until none of its dependencies are pending.
	Topological bool
	// TopologicalDev is Topological with devDependencies included.
	TopologicalDev bool
	// Concurrency bounds the number of tasks running at once across the
	// whole run. Values below 1 are treated as 1.
	Concurrency int
}

func (o Options) topological() bool {
	return o.Topological || o.TopologicalDev
}

func (o Options) concurrency() int {
	if !o.Parallel || o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}

// DefaultConcurrency is the parallel job count used when none is given:
// half the available CPUs, at least one.
func DefaultConcurrency() int {
	return max(1, runtime.NumCPU()/2)
}

// Result is the outcome of a run.
type Result struct {
	// Rounds is the number of rounds started.
	Rounds int
	// Tasks lists every scheduled workspace in pending-set order. Tasks that
	// were never dispatched stay PENDING.
	Tasks []model.TaskResult
	// Cycle is set when the run stopped on a dependency cycle.
	Cycle bool
}

// Dispatched returns the number of tasks that were handed to the task func.
func (r *Result) Dispatched() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Round > 0 {
			n++
		}
	}
	return n
}
