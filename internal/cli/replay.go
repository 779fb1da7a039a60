package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/txbatch/internal/harness"
	"github.com/roach88/txbatch/internal/ir"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	CommitMode string
}

// ReplayResult reports whether rebuilding from the event log reproduced
// the original run.
type ReplayResult struct {
	RunID         string `json:"run_id"`
	Scenario      string `json:"scenario"`
	Steps         int    `json:"steps"`
	FinalBits     string `json:"final_bits"`
	ReplayedBits  string `json:"replayed_bits"`
	TraceDigest   string `json:"trace_digest"`
	ReplayDigest  string `json:"replay_digest"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// String renders the comparison.
func (r ReplayResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replay %s (%s): %d step(s)\n", r.RunID, r.Scenario, r.Steps)
	fmt.Fprintf(&b, "  original  %s  bits %s\n", r.TraceDigest, r.FinalBits)
	fmt.Fprintf(&b, "  replayed  %s  bits %s\n", r.ReplayDigest, r.ReplayedBits)
	if r.Deterministic {
		b.WriteString("✓ deterministic")
	} else {
		fmt.Fprintf(&b, "✗ diverged: %s", r.Mismatch)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Run a scenario, rebuild it from its event log, and compare",
		Long: `Run a scenario, then discard the engine and rebuild a fresh one by
re-feeding every logged input in order. The rebuilt run must make the same
decisions at every epoch and produce the same event digests.

Exit codes:
  0 - Replay reproduced the run
  1 - Replay diverged
  2 - Command error (unreadable scenario, bad flags)

Examples:
  txbatch replay scenarios/input_routing.yaml
  txbatch replay scenarios/crash.yaml --commit-mode rollback --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CommitMode, "commit-mode", "", "override the scenario commit mode (best-effort|rollback)")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	scenario, err := loadScenario(path, pick(opts.CommitMode, opts.Config.CommitMode))
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}

	original, err := harness.Run(cmd.Context(), scenario, harness.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	result := ReplayResult{
		RunID:       original.RunID,
		Scenario:    scenario.Name,
		Steps:       len(original.Trace),
		FinalBits:   original.FinalBits,
		TraceDigest: original.TraceDigest(),
	}

	rebuilt, digests, err := harness.Replay(scenario, original.Log, logger)
	if rebuilt != nil {
		result.ReplayedBits = rebuilt.Observe().String()
	}
	switch {
	case err != nil:
		result.Mismatch = err.Error()
	case !slices.Equal(digests, original.Digests):
		result.ReplayDigest = ir.TraceDigest(digests)
		result.Mismatch = "event digests differ"
	default:
		result.ReplayDigest = ir.TraceDigest(digests)
		result.Deterministic = true
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if !result.Deterministic {
		if err := out.Failure(result.RunID, CodeReplayMismatch, result.Mismatch, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay diverged")
	}
	return out.Success(result.RunID, result)
}
