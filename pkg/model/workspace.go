package model

import (
	"sort"
	"strings"
)

// WorkspaceProtocol is the range prefix that pins a dependency to a workspace
// of the same project.
const WorkspaceProtocol = "workspace:"

// Locator uniquely identifies a workspace within a project.
type Locator struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// String renders the locator as name@reference.
func (l Locator) String() string {
	return l.Name + "@" + l.Reference
}

// Descriptor is a dependency request: a package name plus a version range.
type Descriptor struct {
	Name  string `json:"name"`
	Range string `json:"range"`
}

// String renders the descriptor as name@range.
func (d Descriptor) String() string {
	return d.Name + "@" + d.Range
}

// IsWorkspaceProtocol reports whether the range uses the workspace: protocol.
func (d Descriptor) IsWorkspaceProtocol() bool {
	return strings.HasPrefix(d.Range, WorkspaceProtocol)
}

// DescriptorsFromMap converts a manifest dependency map into descriptors
// sorted by name, so iteration order is stable.
func DescriptorsFromMap(deps map[string]string) []Descriptor {
	if len(deps) == 0 {
		return nil
	}
	out := make([]Descriptor, 0, len(deps))
	for name, rng := range deps {
		out = append(out, Descriptor{Name: name, Range: rng})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Workspace is one project node. It is immutable for the duration of a run.
type Workspace struct {
	Locator Locator `json:"locator"`
	Name    string  `json:"name"`
	Version string  `json:"version,omitempty"`

	// Cwd is the absolute working directory; RelPath is relative to the
	// project root ("." for the top-level workspace).
	Cwd     string `json:"cwd"`
	RelPath string `json:"location"`

	Dependencies    []Descriptor      `json:"dependencies,omitempty"`
	DevDependencies []Descriptor      `json:"dev_dependencies,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`

	// WorkspacePatterns are the child workspace globs declared by the manifest.
	WorkspacePatterns []string `json:"workspace_patterns,omitempty"`
	// ChildCwds are the resolved child workspace directories, in glob order.
	ChildCwds []string `json:"-"`
}

// DisplayName returns the workspace name, or its location when unnamed.
func (w *Workspace) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.RelPath
}

// HasScript reports whether the manifest declares the named script.
func (w *Workspace) HasScript(name string) bool {
	_, ok := w.Scripts[name]
	return ok
}

// ScriptNames returns the declared script names in sorted order.
func (w *Workspace) ScriptNames() []string {
	names := make([]string, 0, len(w.Scripts))
	for name := range w.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DependencySet returns the descriptors that gate this workspace in
// topological mode: dependencies only, or dependencies plus devDependencies.
func (w *Workspace) DependencySet(includeDev bool) []Descriptor {
	if !includeDev || len(w.DevDependencies) == 0 {
		return w.Dependencies
	}
	out := make([]Descriptor, 0, len(w.Dependencies)+len(w.DevDependencies))
	out = append(out, w.Dependencies...)
	out = append(out, w.DevDependencies...)
	return out
}
