// Package selector computes the ordered list of workspaces a foreach run targets.
package selector

import (
	"path"

	"github.com/me/wsrun/pkg/model"
)

// Tree exposes the child workspaces declared by a workspace.
type Tree interface {
	ChildWorkspaces(ws *model.Workspace) []*model.Workspace
}

// Options controls candidate filtering.
type Options struct {
	// ScriptName is set when the command is a "run <script>" invocation;
	// workspaces that do not declare the script are dropped.
	ScriptName string

	// LifecycleEvent is the script that triggered the current process (the
	// npm_lifecycle_event of the caller). CwdWorkspace is the workspace of the
	// current directory. Together they stop a script from re-running itself.
	LifecycleEvent string
	CwdWorkspace   *model.Workspace

	Include []string
	Exclude []string
}

// Descendants returns [root, ...descendants] walking declared children
// depth-first, root first. A workspace reachable through several parents is
// listed once per path.
func Descendants(tree Tree, root *model.Workspace) []*model.Workspace {
	var out []*model.Workspace
	stack := []*model.Workspace{root}
	for len(stack) > 0 {
		ws := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, ws)

		children := tree.ChildWorkspaces(ws)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// Select walks the tree under root and filters the result. An empty result is
// valid.
func Select(tree Tree, root *model.Workspace, opts Options) []*model.Workspace {
	var out []*model.Workspace
	for _, ws := range Descendants(tree, root) {
		if opts.ScriptName != "" && !ws.HasScript(opts.ScriptName) {
			continue
		}
		if opts.isSelfInvocation(ws) {
			continue
		}
		if len(opts.Include) > 0 && !matchAny(opts.Include, ws) {
			continue
		}
		if len(opts.Exclude) > 0 && matchAny(opts.Exclude, ws) {
			continue
		}
		out = append(out, ws)
	}
	return out
}

func (o Options) isSelfInvocation(ws *model.Workspace) bool {
	if o.ScriptName == "" || o.CwdWorkspace == nil {
		return false
	}
	return o.ScriptName == o.LifecycleEvent && ws.Cwd == o.CwdWorkspace.Cwd
}

// matchAny reports whether the workspace name equals one of the patterns or
// matches it as a glob ("@acme/*").
func matchAny(patterns []string, ws *model.Workspace) bool {
	name := ws.DisplayName()
	for _, p := range patterns {
		if p == name {
			return true
		}
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
