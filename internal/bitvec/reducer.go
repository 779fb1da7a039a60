package bitvec

import (
	"slices"

	"github.com/roach88/txbatch/internal/engine"
)

// Engine is an engine over a bit vector with string inputs.
type Engine = engine.Engine[*State, string, *Tx]

// Reducer is a reducer producing bit-vector transactions.
type Reducer = engine.Reducer[*State, string, *Tx]

// NewEngine creates an engine owning s.
func NewEngine(s *State, opts ...engine.Option) *Engine {
	return engine.New[*State, string, *Tx](s, opts...)
}

// WithRollback selects snapshot-and-rollback commits using State.Clone.
func WithRollback() engine.Option {
	return engine.WithRollback((*State).Clone)
}

// Fixed returns a reducer that proposes tx for every input.
func Fixed(tx *Tx) Reducer {
	return engine.ReducerFunc[*State, string, *Tx](func(*State, string) (*Tx, bool) {
		return tx, true
	})
}

// OnInputs returns a reducer that proposes tx only for the listed inputs.
// With no inputs it behaves like Fixed.
func OnInputs(tx *Tx, inputs ...string) Reducer {
	if len(inputs) == 0 {
		return Fixed(tx)
	}
	allowed := slices.Clone(inputs)
	return engine.ReducerFunc[*State, string, *Tx](func(_ *State, in string) (*Tx, bool) {
		return tx, slices.Contains(allowed, in)
	})
}
