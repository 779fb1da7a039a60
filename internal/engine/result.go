package engine

import "fmt"

// Outcome is the terminal state of one step.
type Outcome int

const (
	// OutcomeCommitted means every derived transaction applied.
	OutcomeCommitted Outcome = iota + 1
	// OutcomeConflict means the batch was rejected before any mutation.
	OutcomeConflict
	// OutcomeCrashed means a transaction's Apply failed mid-batch.
	OutcomeCrashed
)

// String returns the lowercase name used in logs and traces.
func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeConflict:
		return "conflict"
	case OutcomeCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CollisionPair identifies two positions in a step's derived list, I > J.
type CollisionPair struct {
	I int `json:"i"`
	J int `json:"j"`
}

// String formats the pair as "(i,j)".
func (p CollisionPair) String() string {
	return fmt.Sprintf("(%d,%d)", p.I, p.J)
}

// Result is the outcome of one Step.
//
// Exactly one of Conflict and Crash is set when the step was rejected.
type Result struct {
	Epoch   Epoch
	Outcome Outcome

	// Derived is the number of transactions proposed this step.
	Derived int

	Conflict *ConflictError
	Crash    *CrashError
}

// OK reports whether the step committed.
func (r Result) OK() bool {
	return r.Outcome == OutcomeCommitted
}

// Err returns the typed step error, or nil on success.
func (r Result) Err() error {
	switch {
	case r.Conflict != nil:
		return r.Conflict
	case r.Crash != nil:
		return r.Crash
	default:
		return nil
	}
}

// Collisions returns the colliding pairs, or nil if the step did not conflict.
func (r Result) Collisions() []CollisionPair {
	if r.Conflict == nil {
		return nil
	}
	return r.Conflict.Pairs
}
