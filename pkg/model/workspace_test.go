package model

import (
	"reflect"
	"testing"
)

func TestLocator_String(t *testing.T) {
	l := Locator{Name: "@acme/app", Reference: "workspace:packages/app"}
	if got, want := l.String(), "@acme/app@workspace:packages/app"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDescriptor_IsWorkspaceProtocol(t *testing.T) {
	tests := []struct {
		rng  string
		want bool
	}{
		{"workspace:*", true},
		{"workspace:packages/lib", true},
		{"^1.0.0", false},
		{"", false},
	}
	for _, tt := range tests {
		d := Descriptor{Name: "lib", Range: tt.rng}
		if got := d.IsWorkspaceProtocol(); got != tt.want {
			t.Errorf("Descriptor{Range: %q}.IsWorkspaceProtocol() = %v, want %v", tt.rng, got, tt.want)
		}
	}
}

func TestDescriptorsFromMap_Sorted(t *testing.T) {
	got := DescriptorsFromMap(map[string]string{"zeta": "1", "alpha": "2", "mid": "3"})
	want := []Descriptor{{"alpha", "2"}, {"mid", "3"}, {"zeta", "1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DescriptorsFromMap = %v, want %v", got, want)
	}
	if DescriptorsFromMap(nil) != nil {
		t.Error("DescriptorsFromMap(nil) should be nil")
	}
}

func TestWorkspace_DependencySet(t *testing.T) {
	ws := &Workspace{
		Dependencies:    []Descriptor{{"a", "workspace:*"}},
		DevDependencies: []Descriptor{{"b", "workspace:*"}},
	}
	if got := ws.DependencySet(false); len(got) != 1 || got[0].Name != "a" {
		t.Errorf("DependencySet(false) = %v", got)
	}
	got := ws.DependencySet(true)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("DependencySet(true) = %v", got)
	}
}

func TestWorkspace_Scripts(t *testing.T) {
	ws := &Workspace{RelPath: "packages/x", Scripts: map[string]string{"test": "go test", "build": "make"}}
	if !ws.HasScript("build") || ws.HasScript("lint") {
		t.Error("HasScript mismatch")
	}
	if got := ws.ScriptNames(); !reflect.DeepEqual(got, []string{"build", "test"}) {
		t.Errorf("ScriptNames = %v", got)
	}
	if got := ws.DisplayName(); got != "packages/x" {
		t.Errorf("DisplayName() = %q, want location for unnamed workspace", got)
	}
}
