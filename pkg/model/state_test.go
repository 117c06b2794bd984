package model

import "testing"

func TestTaskState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
	}{
		{TaskStatePending, false},
		{TaskStateEligible, false},
		{TaskStateDispatched, false},
		{TaskStateRunning, false},
		{TaskStateCompleted, true},
		{TaskStateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("TaskState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestTaskState_IsProcessing(t *testing.T) {
	for _, s := range []TaskState{TaskStateDispatched, TaskStateRunning} {
		if !s.IsProcessing() {
			t.Errorf("TaskState(%q).IsProcessing() = false, want true", s)
		}
	}
	for _, s := range []TaskState{TaskStatePending, TaskStateEligible, TaskStateCompleted, TaskStateFailed} {
		if s.IsProcessing() {
			t.Errorf("TaskState(%q).IsProcessing() = true, want false", s)
		}
	}
}

func TestTaskState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  TaskState
		to    TaskState
		valid bool
	}{
		// Valid transitions
		{TaskStatePending, TaskStateEligible, true},
		{TaskStateEligible, TaskStateDispatched, true},
		{TaskStateDispatched, TaskStateRunning, true},
		{TaskStateDispatched, TaskStateFailed, true},
		{TaskStateRunning, TaskStateCompleted, true},
		{TaskStateRunning, TaskStateFailed, true},

		// Invalid transitions
		{TaskStatePending, TaskStateRunning, false},
		{TaskStatePending, TaskStateCompleted, false},
		{TaskStateEligible, TaskStateRunning, false},
		{TaskStateCompleted, TaskStatePending, false},
		{TaskStateCompleted, TaskStateFailed, false},
		{TaskStateFailed, TaskStatePending, false},
		{TaskStateRunning, TaskStatePending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("TaskState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestRunState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    RunState
		terminal bool
	}{
		{RunStateRunning, false},
		{RunStateSucceeded, true},
		{RunStateFailed, true},
		{RunStateAborted, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("RunState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestComputeTaskSummary(t *testing.T) {
	zero, one := 0, 1
	tasks := []TaskResult{
		{Workspace: "a", State: TaskStateCompleted, ExitCode: &zero},
		{Workspace: "b", State: TaskStateCompleted, ExitCode: &one},
		{Workspace: "c", State: TaskStateFailed, Error: "spawn failed"},
		{Workspace: "d", State: TaskStateCompleted, ExitCode: &zero},
	}
	got := ComputeTaskSummary(tasks)
	want := TaskSummary{Total: 4, Succeeded: 2, NonZero: 1, Failed: 1}
	if got != want {
		t.Errorf("ComputeTaskSummary = %+v, want %+v", got, want)
	}
}
