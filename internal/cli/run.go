package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/txbatch/internal/engine"
	"github.com/roach88/txbatch/internal/harness"
	"github.com/roach88/txbatch/internal/ir"
	"github.com/roach88/txbatch/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	CommitMode string
	RunID      string
}

// StepLine is one step of a run as shown to the user.
type StepLine struct {
	Epoch      int64    `json:"epoch"`
	Input      string   `json:"input"`
	Outcome    string   `json:"outcome"`
	Reducers   []int    `json:"reducers"`
	Collisions [][2]int `json:"collisions,omitempty"`
	Crash      string   `json:"crash,omitempty"`
}

// RunSummary is the result of the run command.
type RunSummary struct {
	RunID       string     `json:"run_id"`
	Scenario    string     `json:"scenario"`
	CommitMode  string     `json:"commit_mode"`
	Steps       []StepLine `json:"steps"`
	FinalBits   string     `json:"final_bits"`
	Tainted     bool       `json:"tainted"`
	TraceDigest string     `json:"trace_digest"`
	Pass        bool       `json:"pass"`
	Errors      []string   `json:"errors,omitempty"`
}

// String renders the summary as a step timeline.
func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s, %s)\n", s.RunID, s.Scenario, s.CommitMode)
	for _, st := range s.Steps {
		fmt.Fprintf(&b, "  %s\n", st)
	}
	fmt.Fprintf(&b, "final bits %s", s.FinalBits)
	if s.Tainted {
		b.WriteString(" (tainted)")
	}
	fmt.Fprintf(&b, "\ntrace digest %s", s.TraceDigest)
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "\n%s", strings.TrimRight(e, "\n"))
	}
	return b.String()
}

// String renders one timeline line.
func (l StepLine) String() string {
	line := fmt.Sprintf("[%d] %s %s reducers=%v", l.Epoch, l.Input, l.Outcome, l.Reducers)
	if len(l.Collisions) > 0 {
		line += fmt.Sprintf(" pairs=%v", l.Collisions)
	}
	if l.Crash != "" {
		line += " crash=" + l.Crash
	}
	return line
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its step timeline",
		Long: `Run a scenario against a fresh engine.

Every step is mirrored into a SQLite index. Without --db the index lives in
memory and is discarded; with --db it can be queried later with "trace".

Exit codes:
  0 - All step expectations and assertions held
  1 - At least one expectation or assertion failed
  2 - Command error (unreadable scenario, bad flags, database error)

Examples:
  txbatch run scenarios/shared_index_conflict.yaml
  txbatch run --db ./txbatch.db --commit-mode rollback scenarios/crash.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default in-memory, or TXBATCH_DB)")
	cmd.Flags().StringVar(&opts.CommitMode, "commit-mode", "", "override the scenario commit mode (best-effort|rollback)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default scenario-<name>)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	scenario, err := loadScenario(path, pick(opts.CommitMode, opts.Config.CommitMode))
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}

	st, err := store.Open(pick(pick(opts.Database, opts.Config.Database), store.MemoryPath))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runOpts := []harness.Option{harness.WithStore(st), harness.WithLogger(logger)}
	if opts.RunID != "" {
		runOpts = append(runOpts, harness.WithRunID(opts.RunID))
	}

	result, err := harness.Run(cmd.Context(), scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	summary := summarize(scenario, result)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if !result.Pass {
		msg := fmt.Sprintf("%d expectation(s) failed", len(result.Errors))
		if err := out.Failure(result.RunID, CodeRunFailed, msg, summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(result.RunID, summary)
}

// loadScenario reads a scenario file and applies a commit mode override.
func loadScenario(path, commitMode string) (*harness.Scenario, error) {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if commitMode != "" {
		if _, err := engine.ParseCommitMode(commitMode); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid commit mode", err)
		}
		scenario.CommitMode = commitMode
	}
	return scenario, nil
}

func summarize(s *harness.Scenario, result *harness.Result) RunSummary {
	mode, _ := engine.ParseCommitMode(s.CommitMode)
	return RunSummary{
		RunID:       result.RunID,
		Scenario:    s.Name,
		CommitMode:  mode.String(),
		Steps:       stepLines(result.Trace),
		FinalBits:   result.FinalBits,
		Tainted:     result.Tainted,
		TraceDigest: result.TraceDigest(),
		Pass:        result.Pass,
		Errors:      result.Errors,
	}
}

func stepLines(trace []ir.EventRecord) []StepLine {
	lines := make([]StepLine, len(trace))
	for i, rec := range trace {
		lines[i] = stepLine(rec)
	}
	return lines
}

func stepLine(rec ir.EventRecord) StepLine {
	line := StepLine{
		Epoch:    rec.Epoch,
		Outcome:  rec.Outcome,
		Reducers: make([]int, len(rec.Transactions)),
	}
	if in, ok := rec.Input.(ir.String); ok {
		line.Input = string(in)
	}
	for i, tx := range rec.Transactions {
		line.Reducers[i] = tx.ReducerID
	}
	for _, p := range rec.Collisions {
		line.Collisions = append(line.Collisions, [2]int{p.I, p.J})
	}
	if c := rec.Crash; c != nil {
		line.Crash = fmt.Sprintf("position %d: %s", c.Position, c.Error)
		if c.RolledBack {
			line.Crash += " (rolled back)"
		}
	}
	return line
}
