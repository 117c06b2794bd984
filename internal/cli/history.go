package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/me/wsrun/pkg/model"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded foreach runs",
		Long: `List the foreach runs recorded in the project's history database.
Recording is enabled with history.enabled in .wsrun.yml or WSRUN_HISTORY=1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			st, err := s.openHistory(cmd, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st == nil {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					string(run.State),
					formatExitCode(run.ExitCode),
					commandLine(run),
					formatTime(&run.StartedAt),
					formatDuration(&run.StartedAt, run.FinishedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "STATE", "EXIT", "COMMAND", "STARTED", "DURATION"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.AddCommand(newHistoryShowCmd(), newHistoryPruneCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			st, err := s.openHistory(cmd, false)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "Command:  %s\n", commandLine(run))
			fmt.Fprintf(out, "Cwd:      %s\n", run.Cwd)
			fmt.Fprintf(out, "State:    %s (exit %s, %d errors)\n", run.State, formatExitCode(run.ExitCode), run.ErrorCount)
			fmt.Fprintf(out, "Started:  %s\n", formatTime(&run.StartedAt))
			fmt.Fprintf(out, "Duration: %s\n", formatDuration(&run.StartedAt, run.FinishedAt))
			fmt.Fprintf(out, "Flags:    %s\n", describeFlags(run.Flags))
			sum := run.TaskSummary
			fmt.Fprintf(out, "Tasks:    %d total, %d succeeded, %d non-zero, %d failed\n",
				sum.Total, sum.Succeeded, sum.NonZero, sum.Failed)

			if len(run.Tasks) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(run.Tasks))
			for _, t := range run.Tasks {
				round := "-"
				if t.Round > 0 {
					round = fmt.Sprint(t.Round)
				}
				rows = append(rows, []string{
					t.Workspace,
					string(t.State),
					formatExitCode(t.ExitCode),
					round,
					formatDuration(t.StartedAt, t.FinishedAt),
					t.Error,
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"WORKSPACE", "STATE", "EXIT", "ROUND", "DURATION", "ERROR"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return errors.New("--keep must not be negative")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			st, err := s.openHistory(cmd, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st == nil {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			defer st.Close()

			n, err := st.PruneRuns(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pruned %d runs.\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 50, "Number of recent runs to keep")
	return cmd
}

func commandLine(run *model.Run) string {
	return strings.TrimSpace(run.Command + " " + strings.Join(run.Args, " "))
}

func describeFlags(f model.RunFlags) string {
	var parts []string
	if f.All {
		parts = append(parts, "--all")
	}
	if f.Parallel {
		parts = append(parts, "--parallel")
	}
	if f.Jobs > 0 {
		parts = append(parts, fmt.Sprintf("--jobs %d", f.Jobs))
	}
	if f.Interlaced {
		parts = append(parts, "--interlaced")
	}
	if f.Topological {
		parts = append(parts, "--topological")
	}
	if f.TopologicalDev {
		parts = append(parts, "--topological-dev")
	}
	for _, inc := range f.Include {
		parts = append(parts, "--include "+inc)
	}
	for _, exc := range f.Exclude {
		parts = append(parts, "--exclude "+exc)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
