package scheduler

import (
	"time"

	"github.com/me/wsrun/pkg/model"
)

// task is the runtime state of one workspace within a run.
type task struct {
	ws       *model.Workspace
	key      string
	state    model.TaskState
	round    int
	exitCode int
	err      error
	started  time.Time
	finished time.Time
}

func (t *task) transition(to model.TaskState) error {
	if !t.state.CanTransitionTo(to) {
		return &model.InvalidTransitionError{Workspace: t.ws.DisplayName(), From: t.state, To: to}
	}
	t.state = to
	return nil
}

// dispatch moves a pending task through ELIGIBLE to DISPATCHED in round.
func (t *task) dispatch(round int) error {
	if err := t.transition(model.TaskStateEligible); err != nil {
		return err
	}
	if err := t.transition(model.TaskStateDispatched); err != nil {
		return err
	}
	t.round = round
	return nil
}

// fail records err and moves the task to FAILED. Both DISPATCHED and
// RUNNING tasks may fail.
func (t *task) fail(err error) {
	t.err = err
	t.state = model.TaskStateFailed
}

func (t *task) result() model.TaskResult {
	r := model.TaskResult{
		Workspace: t.ws.DisplayName(),
		Locator:   t.key,
		State:     t.state,
		Round:     t.round,
	}
	if t.state == model.TaskStateCompleted {
		code := t.exitCode
		r.ExitCode = &code
	}
	if t.err != nil {
		r.Error = t.err.Error()
	}
	if !t.started.IsZero() {
		started := t.started
		r.StartedAt = &started
	}
	if !t.finished.IsZero() {
		finished := t.finished
		r.FinishedAt = &finished
	}
	return r
}

// pendingSet is an insertion-ordered set of tasks keyed by locator. A key
// keeps the position of its first insertion.
type pendingSet struct {
	order []string
	tasks map[string]*task
}

func newPendingSet() *pendingSet {
	return &pendingSet{tasks: make(map[string]*task)}
}

// add inserts t unless its key is already present.
func (p *pendingSet) add(t *task) bool {
	if _, ok := p.tasks[t.key]; ok {
		return false
	}
	p.order = append(p.order, t.key)
	p.tasks[t.key] = t
	return true
}

func (p *pendingSet) has(key string) bool {
	_, ok := p.tasks[key]
	return ok
}

func (p *pendingSet) remove(key string) {
	if _, ok := p.tasks[key]; !ok {
		return
	}
	delete(p.tasks, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *pendingSet) len() int {
	return len(p.order)
}

// list returns the pending tasks in insertion order. The slice is a copy,
// so the set may be modified while iterating it.
func (p *pendingSet) list() []*task {
	out := make([]*task, len(p.order))
	for i, k := range p.order {
		out[i] = p.tasks[k]
	}
	return out
}
