package model

// TaskState represents the lifecycle state of a Task.
type TaskState string

const (
	TaskStatePending    TaskState = "PENDING"
	TaskStateEligible   TaskState = "ELIGIBLE"
	TaskStateDispatched TaskState = "DISPATCHED"
	TaskStateRunning    TaskState = "RUNNING"
	TaskStateCompleted  TaskState = "COMPLETED"
	TaskStateFailed     TaskState = "FAILED"
)

// String returns the string representation of the task state.
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal returns true if the task is in a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed:
		return true
	}
	return false
}

// IsProcessing returns true while the task holds Processing Set membership.
func (s TaskState) IsProcessing() bool {
	return s == TaskStateDispatched || s == TaskStateRunning
}

// ValidTaskTransitions defines the allowed state transitions for Tasks.
// A task left ineligible in a round simply stays PENDING.
var ValidTaskTransitions = map[TaskState][]TaskState{
	TaskStatePending:    {TaskStateEligible},
	TaskStateEligible:   {TaskStateDispatched},
	TaskStateDispatched: {TaskStateRunning, TaskStateFailed},
	TaskStateRunning:    {TaskStateCompleted, TaskStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	for _, allowed := range ValidTaskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunState represents the lifecycle state of a recorded run.
type RunState string

const (
	RunStateRunning   RunState = "RUNNING"
	RunStateSucceeded RunState = "SUCCEEDED"
	RunStateFailed    RunState = "FAILED"
	RunStateAborted   RunState = "ABORTED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	return s != RunStateRunning
}
