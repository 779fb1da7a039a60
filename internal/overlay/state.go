package overlay

import (
	"slices"

	"github.com/roach88/txbatch/internal/engine"
)

// State holds the allow/deny markers for the current epoch plus the inner
// state that wrapped transactions mutate.
type State[A comparable, S any] struct {
	allowed   []A // insertion order, no duplicates
	denied    []A
	lastEpoch engine.Epoch

	Inner S
}

// NewState wraps inner with an empty marker set.
func NewState[A comparable, S any](inner S) *State[A, S] {
	return &State[A, S]{Inner: inner}
}

// AllowedActions returns the actions marked allowed and not denied, in the
// order they were first allowed. The markers are those of LastEpoch; use the
// package-level AllowedActions to read them as of an engine's epoch.
func (s *State[A, S]) AllowedActions() []A {
	out := make([]A, 0, len(s.allowed))
	for _, a := range s.allowed {
		if !slices.Contains(s.denied, a) {
			out = append(out, a)
		}
	}
	return out
}

// AllowedActionsAt is AllowedActions as seen from epoch. Markers recorded in
// an earlier epoch are stale and yield an empty list, even before the next
// Apply has cleared them.
func (s *State[A, S]) AllowedActionsAt(epoch engine.Epoch) []A {
	if s.lastEpoch != epoch {
		return []A{}
	}
	return s.AllowedActions()
}

// DeniedActions returns the actions marked denied, in the order they were
// first denied.
func (s *State[A, S]) DeniedActions() []A {
	return slices.Clone(s.denied)
}

// IsAllowed reports whether a is allowed and not denied.
func (s *State[A, S]) IsAllowed(a A) bool {
	return slices.Contains(s.allowed, a) && !slices.Contains(s.denied, a)
}

// LastEpoch returns the epoch of the most recently applied transaction.
func (s *State[A, S]) LastEpoch() engine.Epoch {
	return s.lastEpoch
}

// Clone copies the markers and clones the inner state with cloneInner.
func (s *State[A, S]) Clone(cloneInner func(S) S) *State[A, S] {
	return &State[A, S]{
		allowed:   slices.Clone(s.allowed),
		denied:    slices.Clone(s.denied),
		lastEpoch: s.lastEpoch,
		Inner:     cloneInner(s.Inner),
	}
}

// sync clears the markers when epoch starts a new step.
func (s *State[A, S]) sync(epoch engine.Epoch) {
	if s.lastEpoch == epoch {
		return
	}
	s.allowed = s.allowed[:0]
	s.denied = s.denied[:0]
	s.lastEpoch = epoch
}

func (s *State[A, S]) allow(a A) {
	if !slices.Contains(s.allowed, a) {
		s.allowed = append(s.allowed, a)
	}
}

func (s *State[A, S]) deny(a A) {
	if !slices.Contains(s.denied, a) {
		s.denied = append(s.denied, a)
	}
}
