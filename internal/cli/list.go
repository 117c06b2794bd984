package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/me/wsrun/internal/project"
	"github.com/me/wsrun/pkg/model"
	"github.com/spf13/cobra"
)

// listEntry is one line of `workspaces list --json`.
type listEntry struct {
	Location string `json:"location"`
	Name     string `json:"name"`

	Version               string   `json:"version,omitempty"`
	Scripts               []string `json:"scripts,omitempty"`
	WorkspaceDependencies []string `json:"workspaceDependencies,omitempty"`
}

func newListCmd() *cobra.Command {
	var asJSON, verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the workspaces of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			workspaces := s.project.Workspaces()

			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				for _, ws := range workspaces {
					entry := listEntry{Location: ws.RelPath, Name: ws.Name}
					if verbose {
						entry.Version = ws.Version
						entry.Scripts = ws.ScriptNames()
						entry.WorkspaceDependencies = workspaceDependencies(s.project, ws)
					}
					if err := enc.Encode(entry); err != nil {
						return fmt.Errorf("encode workspace %s: %w", ws.RelPath, err)
					}
				}

			case verbose:
				rows := make([][]string, 0, len(workspaces))
				for _, ws := range workspaces {
					rows = append(rows, []string{
						ws.DisplayName(),
						ws.RelPath,
						ws.Version,
						strings.Join(ws.ScriptNames(), ", "),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"NAME", "LOCATION", "VERSION", "SCRIPTS"}, rows, nil))

			default:
				for _, ws := range workspaces {
					fmt.Fprintln(out, ws.RelPath)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per workspace")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include versions, scripts and workspace dependencies")
	return cmd
}

// workspaceDependencies returns the locations of the workspaces that ws
// depends on, dev dependencies included.
func workspaceDependencies(p *project.Project, ws *model.Workspace) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range ws.DependencySet(true) {
		for _, dep := range p.ResolveDescriptor(d) {
			if !seen[dep.RelPath] {
				seen[dep.RelPath] = true
				out = append(out, dep.RelPath)
			}
		}
	}
	sort.Strings(out)
	return out
}
