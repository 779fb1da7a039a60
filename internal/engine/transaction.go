package engine

// Epoch is the logical step counter. The first Step runs at epoch 1.
type Epoch uint64

// Transaction is an atomic proposed mutation of state S.
//
// T is the concrete transaction type itself, so collision checks are only
// ever asked between transactions of the same kind.
//
// Implementations must satisfy two obligations the engine trusts but cannot
// verify:
//   - Symmetry: a.IsCollisionSafeWith(b) == b.IsCollisionSafeWith(a)
//   - Confluence: a pairwise-safe set applied in any order, from any starting
//     state, yields the same final state
type Transaction[S any, T any] interface {
	// Apply mutates state in place. A failing Apply may leave state partially
	// mutated; that is a property of the implementation, not of the engine.
	Apply(state S, epoch Epoch) error

	// IsCollisionSafeWith reports whether the two transactions may be
	// committed in the same batch. Must be pure.
	IsCollisionSafeWith(other T) bool
}

// Reducer maps (state, input) to at most one proposed transaction.
// Develop must be deterministic and side-effect free, and must not retain
// references into state across calls.
type Reducer[S any, I any, T any] interface {
	Develop(state S, input I) (T, bool)
}

// ReducerFunc adapts a plain function to the Reducer interface.
type ReducerFunc[S any, I any, T any] func(state S, input I) (T, bool)

// Develop calls f(state, input).
func (f ReducerFunc[S, I, T]) Develop(state S, input I) (T, bool) {
	return f(state, input)
}

// ReducerID is a reducer's registration sequence number (0, 1, 2, ...).
type ReducerID int

// Signed pairs a derived transaction with the reducer that proposed it.
type Signed[T any] struct {
	ReducerID ReducerID
	Tx        T
}
