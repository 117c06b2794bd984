package model

import "fmt"

// ErrorKind classifies a run-level error reported to the user.
type ErrorKind string

const (
	ErrUsage              ErrorKind = "USAGE_ERROR"
	ErrContext            ErrorKind = "CONTEXT_ERROR"
	ErrCyclicDependencies ErrorKind = "CYCLIC_DEPENDENCIES"
	ErrTopologicalFailure ErrorKind = "TOPOLOGICAL_FAILURE"
	ErrExecutorFailure    ErrorKind = "EXECUTOR_FAILURE"
	ErrConfig             ErrorKind = "CONFIG_ERROR"
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return string(k)
}

// RunError is a classified error that is reported rather than propagated.
type RunError struct {
	Kind    ErrorKind
	Message string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewUsageError creates a USAGE_ERROR RunError.
func NewUsageError(format string, args ...any) *RunError {
	return &RunError{Kind: ErrUsage, Message: fmt.Sprintf(format, args...)}
}

// NewContextError creates a CONTEXT_ERROR RunError.
func NewContextError(format string, args ...any) *RunError {
	return &RunError{Kind: ErrContext, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError is returned when a task state transition is invalid.
type InvalidTransitionError struct {
	Workspace string
	From      TaskState
	To        TaskState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition: %s → %s (workspace %s)", e.From, e.To, e.Workspace)
}
