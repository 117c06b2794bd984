package executor

import (
	"context"
	"io"
)

// Request describes one process to run for a workspace.
type Request struct {
	// Dir is the working directory of the process.
	Dir     string
	Command string
	Args    []string
	// Env holds overrides applied on top of the inherited environment.
	Env map[string]string

	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs a Request and returns the process exit code. A non-zero exit
// code is not an error; an error means the process could not be run at all.
type Executor interface {
	Run(ctx context.Context, req Request) (int, error)
}

// ScriptRequest builds a request that runs a manifest script body through
// shell. Extra args are passed as positional parameters and appended to the
// script with "$@", so they need no quoting.
func ScriptRequest(shell, name, body string, args []string) Request {
	cmdArgs := []string{"-c"}
	if len(args) > 0 {
		cmdArgs = append(cmdArgs, body+` "$@"`, name)
		cmdArgs = append(cmdArgs, args...)
	} else {
		cmdArgs = append(cmdArgs, body, name)
	}
	return Request{Command: shell, Args: cmdArgs}
}
