package model

import (
	"errors"
	"testing"
)

func TestRunError_Error(t *testing.T) {
	err := &RunError{Kind: ErrCyclicDependencies, Message: "Dependency cycle detected (a, b)"}
	want := "CYCLIC_DEPENDENCIES: Dependency cycle detected (a, b)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewUsageError(t *testing.T) {
	err := NewUsageError("invalid subcommand %q", "")
	if err.Kind != ErrUsage {
		t.Errorf("Kind = %q, want %q", err.Kind, ErrUsage)
	}
	if err.Message != `invalid subcommand ""` {
		t.Errorf("Message = %q", err.Message)
	}

	var target *RunError
	if !errors.As(error(err), &target) {
		t.Error("errors.As should match *RunError")
	}
}

func TestNewContextError(t *testing.T) {
	err := NewContextError("no workspace found in %s", "/tmp/x")
	if err.Kind != ErrContext {
		t.Errorf("Kind = %q, want %q", err.Kind, ErrContext)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{
		Workspace: "@acme/app",
		From:      TaskStateCompleted,
		To:        TaskStatePending,
	}
	want := "invalid task state transition: COMPLETED → PENDING (workspace @acme/app)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
