package foreach

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/me/wsrun/internal/executor"
	"github.com/me/wsrun/pkg/model"
)

// Environment variables set for every task.
const (
	EnvLifecycleEvent = "npm_lifecycle_event"
	EnvPackageName    = "npm_package_name"
	EnvWorkspace      = "WSRUN_WORKSPACE"
	EnvProjectCwd     = "WSRUN_PROJECT_CWD"
	EnvInitCwd        = "INIT_CWD"
)

// request builds the executor request for ws.
func (r *Runner) request(ws *model.Workspace, opts Options) executor.Request {
	env := map[string]string{
		EnvWorkspace:  ws.DisplayName(),
		EnvProjectCwd: r.project.Root,
		EnvInitCwd:    r.cwd,
	}
	if ws.Name != "" {
		env[EnvPackageName] = ws.Name
	}

	var req executor.Request
	if script := opts.ScriptName(); script != "" {
		req = executor.ScriptRequest(r.cfg.Shell, script, ws.Scripts[script], opts.Args[1:])
		env[EnvLifecycleEvent] = script
		env["PATH"] = binPath(ws.Cwd, r.project.Root, r.getenv("PATH"))
	} else {
		req = executor.Request{Command: opts.Command, Args: opts.Args}
	}
	req.Dir = ws.Cwd
	req.Env = env
	return req
}

// binPath prepends the node_modules/.bin directories of the workspace and
// the project root to path.
func binPath(cwd, root, path string) string {
	dirs := []string{filepath.Join(cwd, "node_modules", ".bin")}
	if root != cwd {
		dirs = append(dirs, filepath.Join(root, "node_modules", ".bin"))
	}
	if path != "" {
		dirs = append(dirs, path)
	}
	return strings.Join(dirs, string(os.PathListSeparator))
}
