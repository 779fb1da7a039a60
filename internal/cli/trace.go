package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/txbatch/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional; without it runs are listed
}

// RunList is the trace output when no run is selected.
type RunList struct {
	Runs []store.Run `json:"runs"`
}

// String renders one line per run.
func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for i, r := range l.Runs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s  %s  %d step(s)", r.ID, r.Label, r.CommitMode, r.Steps)
	}
	return b.String()
}

// TraceResult is the recorded timeline of one run.
type TraceResult struct {
	Run       store.Run                `json:"run"`
	Timeline  []TraceStep              `json:"timeline"`
	Conflicts []store.ReducerConflicts `json:"conflicts"`
	Stats     TraceStats               `json:"stats"`
}

// TraceStep is one stored step with its digest.
type TraceStep struct {
	StepLine
	Digest string `json:"digest"`
}

// TraceStats counts steps by outcome.
type TraceStats struct {
	Steps     int `json:"steps"`
	Committed int `json:"committed"`
	Conflicts int `json:"conflicts"`
	Crashed   int `json:"crashed"`
}

// String renders the timeline followed by per-reducer conflict counts.
func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s, %s)\n", r.Run.ID, r.Run.Label, r.Run.CommitMode)
	for _, st := range r.Timeline {
		fmt.Fprintf(&b, "  %s\n", st.StepLine)
	}
	fmt.Fprintf(&b, "steps %d: %d committed, %d conflict, %d crashed",
		r.Stats.Steps, r.Stats.Committed, r.Stats.Conflicts, r.Stats.Crashed)
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "\n  reducer %d: %d conflicting step(s), %d pair(s)", c.ReducerID, c.Steps, c.Pairs)
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query recorded runs",
		Long: `Query the SQLite index written by "run --db".

Without --run, lists every recorded run. With --run, prints the run's
step timeline and how often each reducer took part in a collision.

Examples:
  txbatch trace --db ./txbatch.db
  txbatch trace --db ./txbatch.db --run scenario-input_routing
  txbatch trace --db ./txbatch.db --run scenario-input_routing --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or TXBATCH_DB)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	path := pick(opts.Database, opts.Config.Database)
	if path == "" {
		return NewExitError(ExitCommandError, "a database is required: pass --db or set TXBATCH_DB")
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return out.Success("", RunList{Runs: runs})
	}

	run, events, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	conflicts, err := st.ConflictCounts(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count conflicts", err)
	}

	result := TraceResult{
		Run:       run,
		Timeline:  make([]TraceStep, len(events)),
		Conflicts: conflicts,
		Stats:     TraceStats{Steps: len(events)},
	}
	for i, ev := range events {
		result.Timeline[i] = TraceStep{StepLine: stepLine(ev.Record), Digest: ev.Digest}
		switch ev.Record.Outcome {
		case "committed":
			result.Stats.Committed++
		case "conflict":
			result.Stats.Conflicts++
		case "crashed":
			result.Stats.Crashed++
		}
	}

	return out.Success(run.ID, result)
}
