package model

import "time"

// Run is one recorded invocation of `workspaces foreach`.
type Run struct {
	ID          string       `json:"id"`
	Command     string       `json:"command"`
	Args        []string     `json:"args"`
	Cwd         string       `json:"cwd"`
	Root        string       `json:"root,omitempty"`
	Flags       RunFlags     `json:"flags"`
	State       RunState     `json:"state"`
	ExitCode    *int         `json:"exit_code,omitempty"`
	ErrorCount  int          `json:"error_count"`
	Tasks       []TaskResult `json:"tasks,omitempty"`
	TaskSummary TaskSummary  `json:"task_summary"` // Computed field, not stored
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// RunFlags captures the scheduling flags a run was started with.
type RunFlags struct {
	Parallel       bool     `json:"parallel,omitempty"`
	Interlaced     bool     `json:"interlaced,omitempty"`
	Topological    bool     `json:"topological,omitempty"`
	TopologicalDev bool     `json:"topological_dev,omitempty"`
	All            bool     `json:"all,omitempty"`
	Jobs           int      `json:"jobs"`
	Include        []string `json:"include,omitempty"`
	Exclude        []string `json:"exclude,omitempty"`
}

// TaskResult is the outcome of one workspace task within a run.
type TaskResult struct {
	Workspace  string     `json:"workspace"`
	Locator    string     `json:"locator"`
	State      TaskState  `json:"state"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Round      int        `json:"round"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the task ran, or zero if it never started or finished.
func (t TaskResult) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// TaskSummary provides an aggregate count of task outcomes within a Run.
type TaskSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	NonZero   int `json:"non_zero"`
	Failed    int `json:"failed"`
}

// ComputeTaskSummary calculates the TaskSummary from a slice of task results.
// NonZero counts completed tasks with a non-zero exit code; Failed counts
// tasks whose execution raised an error.
func ComputeTaskSummary(tasks []TaskResult) TaskSummary {
	s := TaskSummary{Total: len(tasks)}
	for _, t := range tasks {
		switch {
		case t.State == TaskStateFailed:
			s.Failed++
		case t.ExitCode != nil && *t.ExitCode != 0:
			s.NonZero++
		case t.State == TaskStateCompleted:
			s.Succeeded++
		}
	}
	return s
}
