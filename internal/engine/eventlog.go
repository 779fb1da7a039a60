package engine

// Event is the immutable record of one step: the input plus every
// transaction derived for it, including transactions that were rejected
// for collision or never applied because of a crash.
type Event[I any, T any] struct {
	Epoch        Epoch
	Input        I
	Transactions []Signed[T]
	Outcome      Outcome

	// Collisions is set for OutcomeConflict.
	Collisions []CollisionPair

	// Crash is set for OutcomeCrashed.
	Crash *CrashError
}

// ReducerIDs returns the proposing reducers in derivation order.
func (ev Event[I, T]) ReducerIDs() []ReducerID {
	ids := make([]ReducerID, len(ev.Transactions))
	for i, s := range ev.Transactions {
		ids[i] = s.ReducerID
	}
	return ids
}

// EventLog is the append-only, in-memory sequence of processed steps.
//
// Only the owning Engine appends. Callers get a read-only view through
// Engine.Log; the view reflects later appends.
type EventLog[I any, T any] struct {
	events []Event[I, T]
}

func newEventLog[I any, T any]() *EventLog[I, T] {
	return &EventLog[I, T]{
		events: make([]Event[I, T], 0, 16),
	}
}

func (l *EventLog[I, T]) append(ev Event[I, T]) {
	l.events = append(l.events, ev)
}

// Len returns the number of recorded steps.
func (l *EventLog[I, T]) Len() int {
	return len(l.events)
}

// At returns the i-th event. Panics if i is out of range.
func (l *EventLog[I, T]) At(i int) Event[I, T] {
	return l.events[i]
}

// Last returns the most recent event, or false if the log is empty.
func (l *EventLog[I, T]) Last() (Event[I, T], bool) {
	if len(l.events) == 0 {
		return Event[I, T]{}, false
	}
	return l.events[len(l.events)-1], true
}

// Events returns a copy of the recorded events in append order.
// Transactions inside each event are shared, not deep-copied.
func (l *EventLog[I, T]) Events() []Event[I, T] {
	out := make([]Event[I, T], len(l.events))
	copy(out, l.events)
	return out
}

// Inputs returns the recorded inputs in append order.
// Used to rebuild an engine from its log.
func (l *EventLog[I, T]) Inputs() []I {
	out := make([]I, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Input
	}
	return out
}
