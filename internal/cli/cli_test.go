package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir string, fields map[string]any) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

// testRepo builds a two-package project where b depends on a.
func testRepo(t *testing.T, failA bool) string {
	t.Helper()
	root := t.TempDir()
	writeManifest(t, root, map[string]any{
		"name":       "root",
		"workspaces": []string{"packages/*"},
	})
	buildA := "echo building a"
	if failA {
		buildA = "echo broken a; exit 1"
	}
	writeManifest(t, filepath.Join(root, "packages", "a"), map[string]any{
		"name":    "a",
		"version": "1.0.0",
		"scripts": map[string]string{"build": buildA},
	})
	writeManifest(t, filepath.Join(root, "packages", "b"), map[string]any{
		"name":         "b",
		"version":      "1.0.0",
		"dependencies": map[string]string{"a": "workspace:*"},
		"scripts":      map[string]string{"build": "echo building b", "test": "echo testing b"},
	})
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestWorkspacesList(t *testing.T) {
	repo := testRepo(t, false)
	out, err := execute(t, "--cwd", repo, "workspaces", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := ".\npackages/a\npackages/b\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestWorkspacesListJSON(t *testing.T) {
	repo := testRepo(t, false)
	out, err := execute(t, "--cwd", repo, "workspaces", "list", "--json", "-v")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	var b listEntry
	if err := json.Unmarshal([]byte(lines[2]), &b); err != nil {
		t.Fatalf("decode %q: %v", lines[2], err)
	}
	if b.Name != "b" || b.Location != "packages/b" || b.Version != "1.0.0" {
		t.Errorf("entry = %+v", b)
	}
	if len(b.WorkspaceDependencies) != 1 || b.WorkspaceDependencies[0] != "packages/a" {
		t.Errorf("WorkspaceDependencies = %v", b.WorkspaceDependencies)
	}
	if strings.Join(b.Scripts, ",") != "build,test" {
		t.Errorf("Scripts = %v", b.Scripts)
	}
}

func TestWorkspacesListVerboseTable(t *testing.T) {
	repo := testRepo(t, false)
	out, err := execute(t, "--cwd", repo, "workspaces", "list", "-v")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"NAME", "LOCATION", "packages/b", "build, test"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestForeachRunsScripts(t *testing.T) {
	repo := testRepo(t, false)
	out, err := execute(t, "--cwd", repo, "workspaces", "foreach", "--all", "-t", "run", "build")
	if err != nil {
		t.Fatalf("foreach: %v\n%s", err, out)
	}
	if out != "building a\nbuilding b\n" {
		t.Errorf("output = %q", out)
	}
}

func TestForeachVerbosePrefixesOutput(t *testing.T) {
	repo := testRepo(t, false)
	out, err := execute(t, "--cwd", repo, "workspaces", "foreach", "--all", "-pv", "run", "build")
	if err != nil {
		t.Fatalf("foreach: %v\n%s", err, out)
	}
	for _, want := range []string{"[a]: building a\n", "[b]: building b\n", "➤ [a]: Process started\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestForeachTopologicalFailure(t *testing.T) {
	repo := testRepo(t, true)
	out, err := execute(t, "--cwd", repo, "workspaces", "foreach", "--all", "-pt", "run", "build")
	if code := exitCode(err); code != 1 {
		t.Fatalf("exit code = %d (err %v), want 1", code, err)
	}
	if strings.Contains(out, "building b") {
		t.Errorf("dependent ran after failure:\n%s", out)
	}
	if !strings.Contains(out, "TOPOLOGICAL_FAILURE") {
		t.Errorf("output = %q", out)
	}
}

func TestForeachUsageErrors(t *testing.T) {
	repo := testRepo(t, false)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"workspaces", "foreach", "--all"}},
		{"run without script", []string{"workspaces", "foreach", "--all", "run"}},
		{"jobs without parallel", []string{"workspaces", "foreach", "--all", "-j", "4", "run", "build"}},
		{"single job", []string{"workspaces", "foreach", "--all", "-p", "-j", "1", "run", "build"}},
		{"zero jobs", []string{"workspaces", "foreach", "--all", "-p", "-j", "0", "run", "build"}},
		{"zero jobs without parallel", []string{"workspaces", "foreach", "--all", "-j", "0", "run", "build"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--cwd", repo}, tt.args...)...)
			if code := exitCode(err); code != 1 {
				t.Errorf("exit code = %d (err %v), want 1", code, err)
			}
			if !strings.Contains(out, "USAGE_ERROR") {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestForeachPassesFlagsAfterCommand(t *testing.T) {
	repo := testRepo(t, false)
	out, err := execute(t, "--cwd", filepath.Join(repo, "packages", "a"), "workspaces", "foreach", "echo", "-v", "--all")
	if err != nil {
		t.Fatalf("foreach: %v", err)
	}
	if out != "-v --all\n" {
		t.Errorf("output = %q, want the flags echoed in workspace a only", out)
	}
}

func TestHistoryRecordsRuns(t *testing.T) {
	repo := testRepo(t, false)
	t.Setenv("WSRUN_HISTORY", "1")

	out, err := execute(t, "--cwd", repo, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("empty history output = %q", out)
	}

	if _, err := execute(t, "--cwd", repo, "workspaces", "foreach", "--all", "run", "build"); err != nil {
		t.Fatalf("foreach: %v", err)
	}

	out, err = execute(t, "--cwd", repo, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	id := regexp.MustCompile(`run_[0-9a-f-]{36}`).FindString(out)
	if id == "" {
		t.Fatalf("no run id in history output:\n%s", out)
	}
	if !strings.Contains(out, "SUCCEEDED") || !strings.Contains(out, "run build") {
		t.Errorf("history output = %q", out)
	}

	out, err = execute(t, "--cwd", repo, "history", "show", id)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	for _, want := range []string{"Run:      " + id, "Tasks:    2 total, 2 succeeded", "WORKSPACE", "COMPLETED"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "--cwd", repo, "history", "show", "run_missing"); err == nil {
		t.Error("history show of an unknown run should fail")
	}

	out, err = execute(t, "--cwd", repo, "history", "prune", "--keep", "0")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	if out != "Pruned 1 runs.\n" {
		t.Errorf("prune output = %q", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	repo := testRepo(t, false)
	if _, err := execute(t, "--cwd", repo, "--log-level", "loud", "workspaces", "list"); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestNoProject(t *testing.T) {
	if _, err := execute(t, "--cwd", t.TempDir(), "workspaces", "list"); err == nil {
		t.Error("expected error outside any project")
	}
}
