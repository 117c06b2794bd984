package project

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/me/wsrun/internal/config"
	"github.com/me/wsrun/internal/logging"
	"github.com/me/wsrun/pkg/model"
)

// ErrNoProject is returned when no manifest exists at or above the start directory.
var ErrNoProject = errors.New("no project manifest found")

// Project is the workspace graph of one repository. It is built once per
// invocation and read-only afterwards.
type Project struct {
	Root         string
	ManifestName string
	TopLevel     *model.Workspace

	workspaces []*model.Workspace
	byCwd      map[string]*model.Workspace
	byName     map[string][]*model.Workspace
	logger     *slog.Logger
}

// FindRoot walks upward from startDir to locate the project root. A directory
// holding a wsrun config file wins; otherwise the highest ancestor whose
// manifest declares workspaces; otherwise the nearest manifest directory.
func FindRoot(startDir, manifestName string) (string, error) {
	dir, err := canonicalDir(startDir)
	if err != nil {
		return "", err
	}

	var nearest, highestWithWorkspaces string
	for {
		if _, ok, err := config.Find(dir); err != nil {
			return "", err
		} else if ok {
			return dir, nil
		}

		manifestPath := filepath.Join(dir, manifestName)
		if fileExists(manifestPath) {
			if nearest == "" {
				nearest = dir
			}
			if m, err := ReadManifest(manifestPath); err == nil && len(m.Workspaces) > 0 {
				highestWithWorkspaces = dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	switch {
	case highestWithWorkspaces != "":
		return highestWithWorkspaces, nil
	case nearest != "":
		return nearest, nil
	default:
		return "", fmt.Errorf("%w in %s or any parent directory", ErrNoProject, startDir)
	}
}

// Load discovers every workspace reachable from the root manifest. Discovery
// uses an explicit queue; each directory is registered once even when several
// parents declare it.
func Load(root, manifestName string, logger *slog.Logger) (*Project, error) {
	root, err := canonicalDir(root)
	if err != nil {
		return nil, err
	}
	if manifestName == "" {
		manifestName = "package.json"
	}

	p := &Project{
		Root:         root,
		ManifestName: manifestName,
		byCwd:        make(map[string]*model.Workspace),
		byName:       make(map[string][]*model.Workspace),
		logger:       logging.OrDiscard(logger).With("component", "project"),
	}

	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]
		if _, seen := p.byCwd[dir]; seen {
			continue
		}

		ws, err := p.loadWorkspace(dir)
		if err != nil {
			return nil, err
		}
		p.register(ws)
		queue = append(queue, ws.ChildCwds...)
	}

	p.TopLevel = p.byCwd[root]
	p.logger.Debug("project loaded", "root", root, "workspaces", len(p.workspaces))
	return p, nil
}

func (p *Project) loadWorkspace(dir string) (*model.Workspace, error) {
	m, err := ReadManifest(filepath.Join(dir, p.ManifestName))
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(p.Root, dir)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", dir, err)
	}
	rel = filepath.ToSlash(rel)

	ws := &model.Workspace{
		Name:              m.Name,
		Version:           m.Version,
		Cwd:               dir,
		RelPath:           rel,
		Dependencies:      model.DescriptorsFromMap(m.Dependencies),
		DevDependencies:   model.DescriptorsFromMap(m.DevDependencies),
		Scripts:           m.Scripts,
		WorkspacePatterns: m.Workspaces,
	}
	if ws.Scripts == nil {
		ws.Scripts = map[string]string{}
	}
	ws.Locator = model.Locator{Name: ws.DisplayName(), Reference: model.WorkspaceProtocol + rel}

	children, err := p.expandPatterns(dir, m.Workspaces)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", ws.DisplayName(), err)
	}
	ws.ChildCwds = children
	return ws, nil
}

// expandPatterns resolves child workspace globs to directories holding a
// manifest, in pattern order and sorted within each pattern.
func (p *Project) expandPatterns(dir string, patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("workspace pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if seen[match] || match == dir {
				continue
			}
			if !fileExists(filepath.Join(match, p.ManifestName)) {
				continue
			}
			seen[match] = true
			out = append(out, match)
		}
	}
	return out, nil
}

func (p *Project) register(ws *model.Workspace) {
	p.workspaces = append(p.workspaces, ws)
	p.byCwd[ws.Cwd] = ws
	if ws.Name != "" {
		p.byName[ws.Name] = append(p.byName[ws.Name], ws)
	}
}

// Workspaces returns every workspace in discovery order.
func (p *Project) Workspaces() []*model.Workspace {
	out := make([]*model.Workspace, len(p.workspaces))
	copy(out, p.workspaces)
	return out
}

// ChildWorkspaces returns the workspaces declared directly by ws, in
// declaration order.
func (p *Project) ChildWorkspaces(ws *model.Workspace) []*model.Workspace {
	out := make([]*model.Workspace, 0, len(ws.ChildCwds))
	for _, cwd := range ws.ChildCwds {
		if child, ok := p.byCwd[cwd]; ok {
			out = append(out, child)
		}
	}
	return out
}

// WorkspaceByCwd returns the workspace owning dir: the nearest directory at or
// above dir that holds a manifest, provided it is a workspace of this project.
func (p *Project) WorkspaceByCwd(dir string) (*model.Workspace, bool) {
	dir, err := canonicalDir(dir)
	if err != nil {
		return nil, false
	}
	for {
		if fileExists(filepath.Join(dir, p.ManifestName)) {
			ws, ok := p.byCwd[dir]
			return ws, ok
		}
		if dir == p.Root {
			return nil, false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, false
		}
		dir = parent
	}
}

// ResolveDescriptor returns every workspace satisfying d. The result may hold
// more than one workspace when several share a name; an empty result means
// the descriptor points outside the project.
func (p *Project) ResolveDescriptor(d model.Descriptor) []*model.Workspace {
	candidates := p.byName[d.Name]
	if len(candidates) == 0 {
		return nil
	}

	rng := d.Range
	if d.IsWorkspaceProtocol() {
		rest := strings.TrimPrefix(rng, model.WorkspaceProtocol)
		switch rest {
		case "", "*", "^", "~":
			out := make([]*model.Workspace, len(candidates))
			copy(out, candidates)
			return out
		}
		if strings.HasPrefix(rest, ".") || strings.Contains(rest, "/") {
			rel := path.Clean(rest)
			for _, ws := range candidates {
				if ws.RelPath == rel {
					return []*model.Workspace{ws}
				}
			}
			return nil
		}
		rng = rest
	}

	var out []*model.Workspace
	for _, ws := range candidates {
		version := ws.Version
		if version == "" {
			version = "0.0.0"
		}
		if satisfies(version, rng) {
			out = append(out, ws)
		}
	}
	return out
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
