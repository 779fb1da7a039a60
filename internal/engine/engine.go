package engine

import (
	"fmt"
	"log/slog"
)

// Engine is the single-owner step engine.
//
// It owns the state, the ordered reducer list, and the event log. Callers
// feed inputs through Step and read state through Observe.
//
// Thread-safety model:
//   - Step(), AddReducer(): one goroutine at a time, never re-entrantly
//     (violations panic)
//   - Observe(), Reducer(), Log(), Epoch(): read-only, no locking; the value
//     returned by Observe is invalidated by the next Step
//
// INVARIANTS:
//   - reducers order NEVER changes after registration; ReducerID == index
//   - the epoch advances exactly once per Step
//   - the log grows by exactly one Event per Step
type Engine[S any, I any, T Transaction[S, T]] struct {
	guard ownerGuard

	state    S
	reducers []Reducer[S, I, T]
	log      *EventLog[I, T]
	clock    *Clock

	runID   string
	logger  *slog.Logger
	mode    CommitMode
	clone   func(S) S
	hooks   []func(Event[I, T])
	tainted bool
}

// options collects configuration before the generic Engine is built, so
// callers need not spell out type parameters for non-generic options.
type options struct {
	logger *slog.Logger
	runIDs RunIDGenerator
	clock  *Clock
	clone  any   // func(S) S
	hooks  []any // func(Event[I, T])
}

// Option configures an Engine at construction.
type Option func(*options)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(o *options) {
		o.runIDs = gen
	}
}

// WithClock starts the engine from a pre-positioned clock.
func WithClock(clock *Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRollback selects CommitRollback. clone must return a deep copy of
// state that Apply on the original cannot affect.
func WithRollback[S any](clone func(S) S) Option {
	return func(o *options) {
		o.clone = clone
	}
}

// WithEventHook registers fn to be called after each Event is appended.
// Hooks run inside Step and must not call Step or AddReducer.
func WithEventHook[I any, T any](fn func(Event[I, T])) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, fn)
	}
}

// New creates an Engine owning state. The event log starts empty and the
// step counter starts at 0.
//
// Panics if a WithRollback or WithEventHook option was built for different
// type parameters than the engine's.
func New[S any, I any, T Transaction[S, T]](state S, opts ...Option) *Engine[S, I, T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.runIDs == nil {
		o.runIDs = UUIDv7Generator{}
	}
	if o.clock == nil {
		o.clock = NewClock()
	}

	e := &Engine[S, I, T]{
		state:  state,
		log:    newEventLog[I, T](),
		clock:  o.clock,
		runID:  o.runIDs.Generate(),
		logger: o.logger,
		mode:   CommitBestEffort,
	}

	if o.clone != nil {
		clone, ok := o.clone.(func(S) S)
		if !ok {
			panic(fmt.Sprintf("engine: WithRollback clone has type %T, want func(%T) %T", o.clone, state, state))
		}
		e.clone = clone
		e.mode = CommitRollback
	}

	for _, h := range o.hooks {
		hook, ok := h.(func(Event[I, T]))
		if !ok {
			panic(fmt.Sprintf("engine: WithEventHook has type %T, which does not match the engine's event type", h))
		}
		e.hooks = append(e.hooks, hook)
	}

	return e
}

// AddReducer registers a reducer and returns its permanent identifier.
// Identifiers are assigned 0, 1, 2, ... in call order. There is no removal.
func (e *Engine[S, I, T]) AddReducer(r Reducer[S, I, T]) ReducerID {
	e.guard.enter("AddReducer")
	defer e.guard.exit()

	id := ReducerID(len(e.reducers))
	e.reducers = append(e.reducers, r)

	e.logger.Debug("reducer registered", "run_id", e.runID, "reducer_id", id)
	return id
}

// Reducer returns the reducer registered under id, or false if out of range.
func (e *Engine[S, I, T]) Reducer(id ReducerID) (Reducer[S, I, T], bool) {
	if id < 0 || int(id) >= len(e.reducers) {
		return nil, false
	}
	return e.reducers[id], true
}

// ReducerCount returns the number of registered reducers.
func (e *Engine[S, I, T]) ReducerCount() int {
	return len(e.reducers)
}

// Observe returns the current state. Callers must not mutate it; the value
// may be invalidated by the next Step.
func (e *Engine[S, I, T]) Observe() S {
	return e.state
}

// Log returns the read-only event log.
func (e *Engine[S, I, T]) Log() *EventLog[I, T] {
	return e.log
}

// Epoch returns the step counter. It equals the number of Step calls made
// since the engine's clock started.
func (e *Engine[S, I, T]) Epoch() Epoch {
	return e.clock.Current()
}

// RunID returns the identifier generated for this engine instance.
func (e *Engine[S, I, T]) RunID() string {
	return e.runID
}

// CommitMode returns the configured crash policy.
func (e *Engine[S, I, T]) CommitMode() CommitMode {
	return e.mode
}

// Tainted reports whether a best-effort crash has left state partially
// mutated. Once set it stays set; recovery is the caller's decision.
func (e *Engine[S, I, T]) Tainted() bool {
	return e.tainted
}

// Step processes one input end-to-end: advance epoch, derive, collision
// check, then apply-or-abort. The Event is appended to the log on every path.
func (e *Engine[S, I, T]) Step(input I) Result {
	e.guard.enter("Step")
	defer e.guard.exit()

	// Phase 1: advance epoch unconditionally
	epoch := e.clock.Advance()

	// Phase 2: derive in registration order
	derived := e.derive(input)
	ev := Event[I, T]{
		Epoch:        epoch,
		Input:        input,
		Transactions: derived,
	}

	e.logger.Debug("transactions derived",
		"run_id", e.runID,
		"epoch", epoch,
		"reducers", len(e.reducers),
		"derived", len(derived),
	)

	// Phase 3/4: collision check, reject the whole batch on any unsafe pair
	if pairs := detectCollisions(derived); len(pairs) > 0 {
		conflict := newConflictError(epoch, pairs)
		ev.Outcome = OutcomeConflict
		ev.Collisions = pairs
		e.record(ev)

		e.logger.Warn("step rejected: transaction conflict",
			"run_id", e.runID,
			"epoch", epoch,
			"derived", len(derived),
			"pairs", fmt.Sprint(pairs),
		)
		return Result{Epoch: epoch, Outcome: OutcomeConflict, Derived: len(derived), Conflict: conflict}
	}

	// Phase 5: apply in derivation order
	if crash := e.commit(epoch, derived); crash != nil {
		ev.Outcome = OutcomeCrashed
		ev.Crash = crash
		e.record(ev)

		e.logger.Error("step crashed",
			"run_id", e.runID,
			"epoch", epoch,
			"position", crash.Position,
			"reducer_id", crash.ReducerID,
			"applied", crash.Applied,
			"rolled_back", crash.RolledBack,
			"error", crash.Err,
		)
		return Result{Epoch: epoch, Outcome: OutcomeCrashed, Derived: len(derived), Crash: crash}
	}

	// Phase 6: success
	ev.Outcome = OutcomeCommitted
	e.record(ev)

	e.logger.Info("step committed",
		"run_id", e.runID,
		"epoch", epoch,
		"applied", len(derived),
	)
	return Result{Epoch: epoch, Outcome: OutcomeCommitted, Derived: len(derived)}
}

// derive asks every reducer, in registration order, for a proposal.
func (e *Engine[S, I, T]) derive(input I) []Signed[T] {
	var derived []Signed[T]
	for i, r := range e.reducers {
		tx, ok := r.Develop(e.state, input)
		if !ok {
			continue
		}
		derived = append(derived, Signed[T]{ReducerID: ReducerID(i), Tx: tx})
	}
	return derived
}

// commit applies derived transactions in order against the live state.
// Returns the crash report of the first failing transaction, or nil.
func (e *Engine[S, I, T]) commit(epoch Epoch, derived []Signed[T]) *CrashError {
	if len(derived) == 0 {
		return nil
	}

	var snapshot S
	if e.mode == CommitRollback {
		snapshot = e.clone(e.state)
	}

	for k, s := range derived {
		err := s.Tx.Apply(e.state, epoch)
		if err == nil {
			continue
		}

		crash := newCrashError(epoch, k, s.ReducerID, err)
		if e.mode == CommitRollback {
			e.state = snapshot
			crash.RolledBack = true
		} else {
			e.tainted = true
		}
		return crash
	}
	return nil
}

// record appends ev to the log and notifies hooks.
func (e *Engine[S, I, T]) record(ev Event[I, T]) {
	e.log.append(ev)
	for _, hook := range e.hooks {
		hook(ev)
	}
}

// detectCollisions evaluates every unordered pair once and returns the
// unsafe ones as (i, j) with i > j, ordered by i then j. Cost is quadratic
// in the number of derived transactions.
func detectCollisions[T interface{ IsCollisionSafeWith(T) bool }](derived []Signed[T]) []CollisionPair {
	var pairs []CollisionPair
	for i := 1; i < len(derived); i++ {
		for j := 0; j < i; j++ {
			if !derived[i].Tx.IsCollisionSafeWith(derived[j].Tx) {
				pairs = append(pairs, CollisionPair{I: i, J: j})
			}
		}
	}
	return pairs
}
