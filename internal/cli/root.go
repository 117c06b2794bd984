package cli

import (
	"fmt"
	"log/slog"

	"github.com/me/wsrun/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagCwd       string

	logger *slog.Logger
)

// ExitError carries a non-zero exit code whose cause has already been
// reported to the user.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd creates the root cobra command for the wsrun CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wsrun",
		Short: "Run commands across the workspaces of a monorepo",
		Long: `wsrun discovers the workspaces of a package.json monorepo and runs
scripts or commands in each of them, optionally in parallel and in
dependency order.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			level, err := logging.ParseLevelStrict(flagLogLevel)
			if err != nil {
				return err
			}
			logger = logging.NewLoggerWithWriter(level, flagLogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagCwd, "cwd", "", "Run as if wsrun was started in this directory")

	root.AddCommand(
		newWorkspacesCmd(),
		newHistoryCmd(),
	)

	return root
}
