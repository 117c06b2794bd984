package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/me/wsrun/internal/executor"
	"github.com/me/wsrun/internal/foreach"
	"github.com/spf13/cobra"
)

func newForeachCmd() *cobra.Command {
	var opts foreach.Options

	cmd := &cobra.Command{
		Use:   "foreach <command> [...rest]",
		Short: "Run a command on all workspaces",
		Long: `Run a command in each workspace of the current subtree, or of the whole
project with --all. "run <script>" runs a manifest script and skips the
workspaces that do not declare it; any other command is executed as is.

Flags placed after <command> are passed to the command.`,
		Example: `  wsrun workspaces foreach run build
  wsrun workspaces foreach -pt --all run test --coverage
  wsrun workspaces foreach --include '@scope/*' -p -j 4 run lint`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Command = args[0]
				opts.Args = args[1:]
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			opts.JobsSet = cmd.Flags().Changed("jobs")
			if opts.Parallel && !opts.JobsSet {
				opts.Jobs = s.cfg.Jobs
			}
			opts.Interlaced = opts.Interlaced || s.cfg.Interlaced
			opts.Verbose = opts.Verbose || s.cfg.Verbose

			deps := foreach.Deps{
				Project:  s.project,
				Config:   s.cfg,
				Report:   s.newReport(cmd),
				Executor: executor.NewLocalExecutor(s.logger),
				Cwd:      s.cwd,
				Logger:   s.logger,
			}
			if s.cfg.History.Enabled {
				st, err := s.openHistory(cmd, true)
				if err != nil {
					s.logger.Warn("run history unavailable", "error", err)
				} else {
					defer st.Close()
					deps.History = st
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := foreach.New(deps).Run(ctx, opts)
			if err != nil {
				s.logger.Debug("run aborted", "error", err)
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	// Everything after <command> belongs to the command.
	cmd.Flags().SetInterspersed(false)

	f := cmd.Flags()
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Prefix output with the workspace name and report process lifecycle")
	f.BoolVarP(&opts.Parallel, "parallel", "p", false, "Run the commands in parallel")
	f.BoolVarP(&opts.Interlaced, "interlaced", "i", false, "Print output as it arrives instead of per workspace")
	f.IntVarP(&opts.Jobs, "jobs", "j", 0, "Maximum number of parallel jobs (at least 2, requires --parallel)")
	f.BoolVarP(&opts.Topological, "topological", "t", false, "Wait for a workspace's dependencies to finish before running it")
	f.BoolVar(&opts.TopologicalDev, "topological-dev", false, "Like --topological, including devDependencies")
	f.BoolVarP(&opts.All, "all", "A", false, "Run on every workspace of the project")
	f.StringSliceVar(&opts.Include, "include", nil, "Only run on these workspaces (name or glob, repeatable)")
	f.StringSliceVar(&opts.Exclude, "exclude", nil, "Never run on these workspaces (name or glob, repeatable)")

	return cmd
}
