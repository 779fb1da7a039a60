package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/txbatch/internal/bitvec"
	"github.com/roach88/txbatch/internal/engine"
	"github.com/roach88/txbatch/internal/ir"
	"github.com/roach88/txbatch/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	RunID     string `json:"run_id"`
	FinalBits string `json:"final_bits"`
	Tainted   bool   `json:"tainted"`

	// Trace holds every recorded step in epoch order.
	Trace []ir.EventRecord `json:"trace"`

	// Digests are the stored event digests, parallel to Trace.
	Digests []string `json:"digests"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Log is the engine's event log, for Replay.
	Log *engine.EventLog[string, *bitvec.Tx] `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:    true,
		RunID:   runID,
		Trace:   []ir.EventRecord{},
		Digests: []string{},
		Errors:  []string{},
	}
}

// AddError records a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceDigest folds the event digests into one value.
func (r *Result) TraceDigest() string {
	return ir.TraceDigest(r.Digests)
}

type config struct {
	store  *store.Store
	logger *slog.Logger
	runID  string
}

// Option configures Run.
type Option func(*config)

// WithStore mirrors the run into st instead of a private in-memory store.
func WithStore(st *store.Store) Option {
	return func(c *config) {
		c.store = st
	}
}

// WithLogger sets the engine logger. Default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRunID overrides the scenario's run id.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}

// Run executes a scenario against a fresh engine and returns the result.
//
// Execution flow:
//  1. Build the initial vector and register reducers in order
//  2. Mirror every event into the store through a Recorder hook
//  3. Step each input, checking its expectations
//  4. Evaluate run-level assertions
//
// An error is returned only when the run could not be carried out;
// failed expectations are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	runID := cfg.runID
	if runID == "" {
		runID = s.runID()
	}

	st := cfg.store
	if st == nil {
		mem, err := store.Open(store.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer mem.Close()
		st = mem
	}

	mode, err := engine.ParseCommitMode(s.CommitMode)
	if err != nil {
		return nil, err
	}
	if err := st.CreateRun(ctx, store.Run{ID: runID, Label: s.Name, CommitMode: mode.String()}); err != nil {
		return nil, err
	}

	initial, err := s.initialState()
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	rec := store.NewRecorder(ctx, st, runID, bitvec.Encoder())
	e := bitvec.NewEngine(initial, append(engineOptions(cfg.logger, runID, mode), rec.Option())...)
	for _, r := range s.buildReducers() {
		e.AddReducer(r)
	}

	result := NewResult(runID)
	for i, step := range s.Steps {
		res := e.Step(step.Input)
		if step.Expect == nil {
			continue
		}
		for _, failure := range checkExpect(s, i, step.Expect, res, e) {
			result.AddError(failure.Error())
		}
	}

	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("mirror run into store: %w", err)
	}

	result.Trace = bitvec.Encoder().Records(runID, e.Log())
	result.Digests = rec.Digests()
	result.FinalBits = e.Observe().String()
	result.Tainted = e.Tainted()
	result.Log = e.Log()

	actx := &AssertionContext{Ctx: ctx, Store: st, Scenario: s, Logger: cfg.logger}
	for _, failure := range EvaluateAssertions(result, s.Assertions, actx) {
		result.AddError(failure)
	}

	return result, nil
}

// Replay rebuilds the scenario's engine from log and returns the digests of
// the rebuilt events. Divergence from the recorded decisions is an error.
func Replay(s *Scenario, log *engine.EventLog[string, *bitvec.Tx], logger *slog.Logger) (*bitvec.Engine, []string, error) {
	mode, err := engine.ParseCommitMode(s.CommitMode)
	if err != nil {
		return nil, nil, err
	}
	initial, err := s.initialState()
	if err != nil {
		return nil, nil, fmt.Errorf("initial state: %w", err)
	}

	runID := s.runID() + "-replay"
	rebuilt, err := engine.Replay(initial, s.buildReducers(), log, engineOptions(logger, runID, mode)...)
	if err != nil {
		return rebuilt, nil, err
	}

	recs := bitvec.Encoder().Records(runID, rebuilt.Log())
	digests := make([]string, len(recs))
	for i, r := range recs {
		if digests[i], err = ir.EventDigest(r); err != nil {
			return rebuilt, nil, err
		}
	}
	return rebuilt, digests, nil
}

func engineOptions(logger *slog.Logger, runID string, mode engine.CommitMode) []engine.Option {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
	}
	if mode == engine.CommitRollback {
		opts = append(opts, bitvec.WithRollback())
	}
	return opts
}
