package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is the subset of a workspace manifest that wsrun reads.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Workspaces      WorkspaceGlobs    `json:"workspaces"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

// WorkspaceGlobs accepts both manifest forms for child workspaces:
//
//	"workspaces": ["packages/*"]
//	"workspaces": {"packages": ["packages/*"]}
type WorkspaceGlobs []string

// UnmarshalJSON implements json.Unmarshaler.
func (w *WorkspaceGlobs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*w = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*w = list
		return nil
	}

	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("workspaces: expected an array or an object with packages: %w", err)
	}
	*w = obj.Packages
	return nil
}

// ReadManifest parses the manifest file at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
