package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// LocalExecutor runs requests as local OS processes.
type LocalExecutor struct {
	logger  *slog.Logger
	environ func() []string
}

// NewLocalExecutor creates a LocalExecutor that inherits the current
// process environment.
func NewLocalExecutor(logger *slog.Logger) *LocalExecutor {
	return &LocalExecutor{
		logger:  logger.With("component", "local-executor"),
		environ: os.Environ,
	}
}

// Run executes the request synchronously. It returns the exit code of the
// process, or an error if the process could not be started.
func (e *LocalExecutor) Run(ctx context.Context, req Request) (int, error) {
	if req.Command == "" {
		return 0, errors.New("run: empty command")
	}

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = mergeEnv(e.environ(), req.Env)
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr

	start := time.Now()
	runErr := cmd.Run()

	var exitCode int
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		exitCode = exitErr.ExitCode()
		if exitCode < 0 {
			// Killed by a signal.
			if ctx.Err() != nil {
				return exitCode, fmt.Errorf("run %s in %s: %w", req.Command, req.Dir, ctx.Err())
			}
			exitCode = 1
		}
	default:
		return 0, fmt.Errorf("run %s in %s: %w", req.Command, req.Dir, runErr)
	}

	e.logger.Debug("process exited",
		"dir", req.Dir,
		"command", req.Command,
		"exit_code", exitCode,
		"duration", time.Since(start),
	)
	return exitCode, nil
}

// mergeEnv applies overrides to base, replacing existing keys in place and
// appending new ones in sorted order.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := overrides[key]; ok {
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}
