package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/me/wsrun/pkg/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// graph is an in-memory resolver: a descriptor resolves to every workspace
// registered under its name.
type graph struct {
	byName map[string][]*model.Workspace
}

func newGraph() *graph {
	return &graph{byName: make(map[string][]*model.Workspace)}
}

// add registers a workspace whose location is its name.
func (g *graph) add(name string, deps ...string) *model.Workspace {
	return g.addAt(name, name, deps...)
}

func (g *graph) addAt(name, location string, deps ...string) *model.Workspace {
	ws := &model.Workspace{
		Locator: model.Locator{Name: name, Reference: model.WorkspaceProtocol + location},
		Name:    name,
		RelPath: location,
	}
	for _, d := range deps {
		ws.Dependencies = append(ws.Dependencies, model.Descriptor{Name: d, Range: "workspace:*"})
	}
	g.byName[name] = append(g.byName[name], ws)
	return ws
}

func (g *graph) ResolveDescriptor(d model.Descriptor) []*model.Workspace {
	return g.byName[d.Name]
}

// fakeReport records errors for assertions.
type fakeReport struct {
	mu     sync.Mutex
	errors []model.RunError
}

func (r *fakeReport) ReportError(kind model.ErrorKind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, model.RunError{Kind: kind, Message: text})
}

func (r *fakeReport) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

func (r *fakeReport) kinds() []model.ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ErrorKind
	for _, e := range r.errors {
		out = append(out, e.Kind)
	}
	return out
}

// recorder is a TaskFunc that logs start and end events and tracks how many
// tasks run at once.
type recorder struct {
	codes  map[string]int
	errs   map[string]error
	delay  time.Duration
	delays map[string]time.Duration // overrides delay per workspace

	mu         sync.Mutex
	events     []string
	running    int
	maxRunning int
}

func (r *recorder) run(ctx context.Context, ws *model.Workspace) (int, error) {
	name := ws.DisplayName()
	r.mu.Lock()
	r.events = append(r.events, "start:"+name)
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
	r.mu.Unlock()

	delay := r.delay
	if d, ok := r.delays[name]; ok {
		delay = d
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	r.mu.Lock()
	r.running--
	r.events = append(r.events, "end:"+name)
	r.mu.Unlock()
	return r.codes[name], r.errs[name]
}

func (r *recorder) started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if len(e) > 6 && e[:6] == "start:" {
			out = append(out, e[6:])
		}
	}
	return out
}

func (r *recorder) indexOf(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

func runScheduler(t *testing.T, g *graph, rep *fakeReport, opts Options, rec *recorder, workspaces ...*model.Workspace) *Result {
	t.Helper()
	var resolver Resolver
	if g != nil {
		resolver = g
	}
	res, err := New(resolver, rep, opts, newTestLogger()).Run(context.Background(), workspaces, rec.run)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func roundsByName(res *Result) map[string]int {
	out := make(map[string]int, len(res.Tasks))
	for _, tr := range res.Tasks {
		out[tr.Workspace] = tr.Round
	}
	return out
}
