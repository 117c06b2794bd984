// Package foreach runs one command across a set of workspaces: it selects
// the candidates, schedules them, streams their output, and records the run.
package foreach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/me/wsrun/internal/config"
	"github.com/me/wsrun/internal/executor"
	"github.com/me/wsrun/internal/logging"
	"github.com/me/wsrun/internal/output"
	"github.com/me/wsrun/internal/project"
	"github.com/me/wsrun/internal/report"
	"github.com/me/wsrun/internal/scheduler"
	"github.com/me/wsrun/internal/selector"
	"github.com/me/wsrun/internal/store"
	"github.com/me/wsrun/pkg/model"
)

// Deps are the collaborators of a Runner.
type Deps struct {
	Project  *project.Project
	Config   config.Config
	Report   *report.Report
	Executor executor.Executor
	// History is optional; runs are not recorded when it is nil.
	History store.Store
	// Cwd is the directory the command was invoked from.
	Cwd string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	Logger *slog.Logger
}

// Runner executes foreach invocations against one project.
type Runner struct {
	project  *project.Project
	cfg      config.Config
	report   *report.Report
	executor executor.Executor
	history  store.Store
	cwd      string
	getenv   func(string) string
	logger   *slog.Logger
}

// New creates a Runner.
func New(deps Deps) *Runner {
	getenv := deps.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Runner{
		project:  deps.Project,
		cfg:      deps.Config,
		report:   deps.Report,
		executor: deps.Executor,
		history:  deps.History,
		cwd:      deps.Cwd,
		getenv:   getenv,
		logger:   logging.OrDiscard(deps.Logger).With("component", "foreach"),
	}
}

// Run executes opts and returns the exit code of the invocation. Usage,
// context, cycle and topological errors are written to the report and
// reflected in the exit code. A returned error means a task could not be
// run: it has been reported as an executor failure, the run was aborted, and
// every output stream has been closed.
func (r *Runner) Run(ctx context.Context, opts Options) (int, error) {
	if err := opts.Validate(); err != nil {
		r.reportRunError(err)
		return r.report.ExitCode(), nil
	}

	cwdWorkspace, _ := r.project.WorkspaceByCwd(r.cwd)
	root := cwdWorkspace
	if opts.All {
		root = r.project.TopLevel
	}
	if root == nil {
		r.reportRunError(model.NewContextError(
			"This command can only be run from within a workspace of your project (%s)", r.cwd))
		return r.report.ExitCode(), nil
	}

	candidates := selector.Select(r.project, root, selector.Options{
		ScriptName:     opts.ScriptName(),
		LifecycleEvent: r.getenv(EnvLifecycleEvent),
		CwdWorkspace:   cwdWorkspace,
		Include:        opts.Include,
		Exclude:        opts.Exclude,
	})
	r.logger.Debug("candidates selected",
		"root", root.DisplayName(),
		"count", len(candidates),
		"command", opts.Command,
	)

	concurrency := opts.Jobs
	if concurrency == 0 {
		concurrency = scheduler.DefaultConcurrency()
	}
	sched := scheduler.New(r.project, r.report, scheduler.Options{
		Parallel:       opts.Parallel,
		Topological:    opts.Topological,
		TopologicalDev: opts.TopologicalDev,
		Concurrency:    concurrency,
	}, r.logger)

	run := r.startRun(ctx, opts)

	mux := output.NewMux(r.report, opts.Interlace())
	colorIndex := make(map[string]int, len(candidates))
	for i, ws := range candidates {
		if _, ok := colorIndex[ws.Locator.String()]; !ok {
			colorIndex[ws.Locator.String()] = i
		}
	}

	task := func(ctx context.Context, ws *model.Workspace) (int, error) {
		prefix := ""
		if opts.Verbose {
			prefix = r.report.Prefix(ws.DisplayName(), colorIndex[ws.Locator.String()])
		}
		return r.runTask(ctx, ws, opts, mux, prefix)
	}

	res, err := sched.Run(ctx, candidates, task)
	if err != nil {
		r.report.ReportError(model.ErrExecutorFailure, err.Error())
	}
	r.finishRun(run, res, err)
	return r.report.ExitCode(), err
}

// runTask runs the command for one workspace. The streams are closed on
// every path before the result is returned.
func (r *Runner) runTask(ctx context.Context, ws *model.Workspace, opts Options, mux *output.Mux, prefix string) (int, error) {
	if opts.Verbose {
		r.report.ReportInfo(prefix + " Process started")
	}
	start := time.Now()

	streams := mux.Open(prefix)
	defer streams.Close()

	req := r.request(ws, opts)
	req.Stdout, req.Stderr = streams.Stdout, streams.Stderr
	code, err := r.executor.Run(ctx, req)
	streams.Close()
	if err != nil {
		return code, err
	}

	if opts.Verbose {
		elapsed := time.Since(start).Round(time.Millisecond)
		if streams.Empty() {
			r.report.ReportInfo(fmt.Sprintf("%s Process exited without output (exit code %d), completed in %s", prefix, code, elapsed))
		} else {
			r.report.ReportInfo(fmt.Sprintf("%s Process exited (exit code %d), completed in %s", prefix, code, elapsed))
		}
	}
	return code, nil
}

func (r *Runner) reportRunError(err error) {
	var runErr *model.RunError
	if errors.As(err, &runErr) {
		r.report.ReportError(runErr.Kind, runErr.Message)
		return
	}
	r.report.ReportError(model.ErrExecutorFailure, err.Error())
}

// startRun records the start of a run. History failures are logged and
// disable recording for the rest of the run.
func (r *Runner) startRun(ctx context.Context, opts Options) *model.Run {
	if r.history == nil {
		return nil
	}
	run := &model.Run{
		ID:        "run_" + uuid.New().String(),
		Command:   opts.Command,
		Args:      opts.Args,
		Cwd:       r.cwd,
		Root:      r.project.Root,
		Flags:     opts.Flags(),
		State:     model.RunStateRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.history.CreateRun(ctx, run); err != nil {
		r.logger.Warn("history disabled for this run", "error", err)
		return nil
	}
	r.logger.Debug("run recorded", "run_id", run.ID)
	return run
}

func (r *Runner) finishRun(run *model.Run, res *scheduler.Result, runErr error) {
	if run == nil {
		return
	}
	// The run context may already be cancelled.
	ctx := context.Background()

	for i, tr := range res.Tasks {
		if err := r.history.RecordTask(ctx, run.ID, i, tr); err != nil {
			r.logger.Warn("record task", "run_id", run.ID, "workspace", tr.Workspace, "error", err)
		}
	}

	now := time.Now().UTC()
	code := r.report.ExitCode()
	run.FinishedAt = &now
	run.ErrorCount = len(r.report.Errors())
	switch {
	case runErr != nil:
		run.State = model.RunStateAborted
	case code != 0:
		run.State = model.RunStateFailed
	default:
		run.State = model.RunStateSucceeded
	}
	run.ExitCode = &code
	if err := r.history.FinishRun(ctx, run); err != nil {
		r.logger.Warn("finish run", "run_id", run.ID, "error", err)
	}
}
