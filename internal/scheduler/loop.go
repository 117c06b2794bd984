package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/me/wsrun/pkg/model"
)

// Scheduler dispatches workspace tasks round by round.
type Scheduler struct {
	resolver Resolver
	report   Reporter
	opts     Options
	logger   *slog.Logger
}

// New creates a Scheduler. resolver may be nil when opts is not topological.
func New(resolver Resolver, report Reporter, opts Options, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		resolver: resolver,
		report:   report,
		opts:     opts,
		logger:   logger.With("component", "scheduler"),
	}
}

// Run schedules one task per workspace. Workspaces sharing a locator are
// scheduled once, at the position of their first occurrence.
//
// Each round admits the eligible tasks through the gate in pending-set order
// and waits for all of them. The run stops when nothing is left, when the
// report holds an error at the start of a round, when a round dispatches
// nothing (a dependency cycle), when run returns an error, or when ctx is
// cancelled. Only the last two return an error. Tasks already running when
// a sibling fails are left to finish.
func (s *Scheduler) Run(ctx context.Context, workspaces []*model.Workspace, run TaskFunc) (*Result, error) {
	pending := newPendingSet()
	var all []*task
	for _, ws := range workspaces {
		t := &task{ws: ws, key: ws.Locator.String(), state: model.TaskStatePending}
		if !pending.add(t) {
			s.logger.Debug("duplicate workspace collapsed", "workspace", t.key)
			continue
		}
		all = append(all, t)
	}

	res := &Result{}
	defer func() {
		res.Tasks = make([]model.TaskResult, len(all))
		for i, t := range all {
			res.Tasks[i] = t.result()
		}
	}()

	if s.opts.topological() && s.resolver == nil {
		return res, fmt.Errorf("topological run requires a resolver")
	}

	gate := semaphore.NewWeighted(int64(s.opts.concurrency()))
	processing := make(map[string]bool)

	// A task that fails to run closes admission before releasing its slot,
	// so no waiter is admitted after it.
	admission, closeAdmission := context.WithCancel(ctx)
	defer closeAdmission()

	for pending.len() > 0 {
		if s.report.HasErrors() {
			s.logger.Debug("stopping before next round: errors reported", "pending", pending.len())
			break
		}
		res.Rounds++
		round := res.Rounds

		var g errgroup.Group
		var dispatched []*task
		var admitErr error
		for _, t := range pending.list() {
			if processing[t.key] {
				continue
			}
			if s.opts.topological() {
				if blocked := blockers(t.ws, s.opts.TopologicalDev, s.resolver, pending); len(blocked) > 0 {
					s.logger.Debug("task waiting", "workspace", t.key, "blocked_by", blocked)
					continue
				}
			}

			// Waiters are admitted in the order they arrive, which is
			// pending-set order.
			if err := gate.Acquire(admission, 1); err != nil {
				admitErr = err
				break
			}
			if err := t.dispatch(round); err != nil {
				gate.Release(1)
				g.Wait()
				return res, err
			}
			processing[t.key] = true
			dispatched = append(dispatched, t)
			g.Go(func() error {
				err := s.execute(ctx, t, run)
				if err != nil {
					closeAdmission()
				}
				gate.Release(1)
				return err
			})

			if !s.opts.Parallel {
				break
			}
		}

		if len(dispatched) == 0 {
			if admitErr != nil {
				return res, fmt.Errorf("dispatch: %w", admitErr)
			}
			names := make([]string, 0, pending.len())
			for _, t := range pending.list() {
				names = append(names, t.ws.DisplayName())
			}
			s.report.ReportError(model.ErrCyclicDependencies,
				fmt.Sprintf("Dependency cycle detected (%s)", strings.Join(names, ", ")))
			res.Cycle = true
			return res, nil
		}

		s.logger.Debug("round dispatched", "round", round, "dispatched", len(dispatched), "pending", pending.len())

		err := g.Wait()
		for _, t := range dispatched {
			pending.remove(t.key)
			delete(processing, t.key)
		}
		if err != nil {
			return res, err
		}
		if admitErr != nil {
			return res, fmt.Errorf("dispatch: %w", admitErr)
		}

		if s.opts.topological() {
			for _, t := range dispatched {
				if t.exitCode != 0 {
					s.report.ReportError(model.ErrTopologicalFailure,
						"The command failed for workspaces that are depended upon by other workspaces; can't satisfy the dependency graph")
					break
				}
			}
		}
	}

	return res, nil
}

// execute runs a task that already holds a slot in the gate.
func (s *Scheduler) execute(ctx context.Context, t *task, run TaskFunc) error {
	if err := t.transition(model.TaskStateRunning); err != nil {
		return err
	}
	t.started = time.Now()
	code, err := run(ctx, t.ws)
	t.finished = time.Now()

	if err != nil {
		t.fail(err)
		s.logger.Debug("task failed", "workspace", t.key, "error", err)
		return fmt.Errorf("workspace %s: %w", t.ws.DisplayName(), err)
	}
	t.exitCode = code
	if err := t.transition(model.TaskStateCompleted); err != nil {
		return err
	}
	s.logger.Debug("task completed",
		"workspace", t.key,
		"exit_code", code,
		"duration", t.finished.Sub(t.started),
	)
	return nil
}
