package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/me/wsrun/internal/config"
	"github.com/me/wsrun/internal/logging"
	"github.com/me/wsrun/internal/project"
	"github.com/me/wsrun/internal/report"
	"github.com/me/wsrun/internal/store"
	"github.com/spf13/cobra"
)

// session is the project context shared by the subcommands.
type session struct {
	cwd     string
	cfg     config.Config
	cfgPath string
	project *project.Project
	logger  *slog.Logger
}

// openSession locates the project around --cwd, loads its config, and
// discovers its workspaces.
func openSession(cmd *cobra.Command) (*session, error) {
	cwd := flagCwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cwd = wd
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve --cwd: %w", err)
	}

	logging.OrDiscard(logger).Debug("locating project", "cwd", cwd)
	root, err := project.FindRoot(cwd, config.Default().Manifest)
	if err != nil {
		return nil, err
	}
	cfg, cfgPath, err := config.Load(root, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := sessionLogger(cmd, cfg)
	if cfgPath != "" {
		log.Debug("config loaded", "path", cfgPath)
	}

	proj, err := project.Load(root, cfg.Manifest, log)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	return &session{
		cwd:     cwd,
		cfg:     cfg,
		cfgPath: cfgPath,
		project: proj,
		logger:  log,
	}, nil
}

// sessionLogger applies the config's log settings unless flags override them.
func sessionLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	levelName := cfg.LogLevel
	if cmd.Flags().Changed("log-level") || flagDebug {
		levelName = flagLogLevel
	}
	format := cfg.LogFormat
	if cmd.Flags().Changed("log-format") {
		format = flagLogFormat
	}
	return logging.NewLoggerWithWriter(logging.ParseLevel(levelName), format, cmd.ErrOrStderr())
}

// newReport creates the report sink on the command's output.
func (s *session) newReport(cmd *cobra.Command) *report.Report {
	out := cmd.OutOrStdout()
	f, _ := out.(*os.File)
	return report.New(out, report.ColorEnabled(s.cfg.Color, f))
}

// openHistory opens the run history database. It returns nil when the
// database does not exist and create is false.
func (s *session) openHistory(cmd *cobra.Command, create bool) (*store.SQLiteStore, error) {
	path := s.cfg.History.Path
	if !create && path != store.MemoryPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
	}
	st, err := store.NewSQLiteStore(path, s.logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return st, nil
}
