package overlay

import "github.com/roach88/txbatch/internal/engine"

// Engine is an engine over an overlay state.
type Engine[A comparable, S any, I any, T engine.Transaction[S, T]] = engine.Engine[*State[A, S], I, *Tx[A, S, T]]

// NewEngine creates an engine owning an overlay around inner.
func NewEngine[A comparable, S any, I any, T engine.Transaction[S, T]](inner S, opts ...engine.Option) *Engine[A, S, I, T] {
	return engine.New[*State[A, S], I, *Tx[A, S, T]](NewState[A](inner), opts...)
}

// WithRollback selects snapshot-and-rollback commits. cloneInner must
// deep-copy the inner state.
func WithRollback[A comparable, S any](cloneInner func(S) S) engine.Option {
	return engine.WithRollback(func(s *State[A, S]) *State[A, S] {
		return s.Clone(cloneInner)
	})
}

// AllowedActions returns the allowed actions as of e's current epoch. Markers
// left by an earlier step count as cleared even when no transaction of the
// current step has reached the overlay yet.
func AllowedActions[A comparable, S any, I any, T engine.Transaction[S, T]](e *Engine[A, S, I, T]) []A {
	return e.Observe().AllowedActionsAt(e.Epoch())
}

// IsAllowed reports whether a is allowed as of e's current epoch.
func IsAllowed[A comparable, S any, I any, T engine.Transaction[S, T]](e *Engine[A, S, I, T], a A) bool {
	s := e.Observe()
	return s.LastEpoch() == e.Epoch() && s.IsAllowed(a)
}
