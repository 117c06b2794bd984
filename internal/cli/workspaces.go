package cli

import "github.com/spf13/cobra"

func newWorkspacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "Inspect the workspaces of the project and run commands in them",
	}
	cmd.AddCommand(
		newForeachCmd(),
		newListCmd(),
	)
	return cmd
}
