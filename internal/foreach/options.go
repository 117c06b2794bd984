package foreach

import (
	"strings"

	"github.com/me/wsrun/pkg/model"
)

// RunCommand is the command that runs a manifest script by name.
const RunCommand = "run"

// Options are the flags and command of one `workspaces foreach` invocation.
type Options struct {
	Command string
	Args    []string

	Verbose        bool
	Parallel       bool
	Interlaced     bool
	Jobs           int  // 0 derives the job count
	JobsSet        bool // Jobs was given explicitly, so 0 is not "unset"
	Topological    bool
	TopologicalDev bool
	All            bool
	Include        []string
	Exclude        []string
}

// ScriptName returns the script targeted by a `run <script>` command, or ""
// for any other command.
func (o Options) ScriptName() string {
	if o.Command == RunCommand && len(o.Args) > 0 {
		return o.Args[0]
	}
	return ""
}

// Validate checks the options before anything is scheduled.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Command) == "" {
		return model.NewUsageError("Invalid subcommand name for iteration - use the 'run' keyword if you wish to execute a script")
	}
	if o.Command == RunCommand && (len(o.Args) == 0 || strings.TrimSpace(o.Args[0]) == "") {
		return model.NewUsageError("Missing script name: use 'run <script>'")
	}
	if o.Jobs != 0 || o.JobsSet {
		if !o.Parallel {
			return model.NewUsageError("--jobs requires --parallel")
		}
		if o.Jobs < 2 {
			return model.NewUsageError("--jobs must be at least 2 (got %d)", o.Jobs)
		}
	}
	return nil
}

// Interlace reports whether task output streams without buffering. Sequential
// runs always interlace since only one task writes at a time.
func (o Options) Interlace() bool {
	return o.Interlaced || !o.Parallel
}

// Flags returns the scheduling flags as recorded in run history.
func (o Options) Flags() model.RunFlags {
	return model.RunFlags{
		Parallel:       o.Parallel,
		Interlaced:     o.Interlaced,
		Topological:    o.Topological,
		TopologicalDev: o.TopologicalDev,
		All:            o.All,
		Jobs:           o.Jobs,
		Include:        o.Include,
		Exclude:        o.Exclude,
	}
}
