package engine

import (
	"fmt"
	"slices"
)

// Replay rebuilds an engine by re-feeding every logged input, in order, to a
// fresh engine built from initial and reducers. It is the "discard and
// rebuild from the event log" recovery path for a tainted engine.
//
// Because reducers are deterministic, each rebuilt step must reproduce the
// recorded one: same epoch, same outcome, same proposing reducers in the same
// order, same collision pairs. The first divergence stops the replay with a
// *ReplayMismatchError; the partially rebuilt engine is returned with it.
//
// The rebuilt clock starts just before the log's first epoch. opts are
// applied after that, so a caller may override it. Passing WithRollback
// rebuilds a best-effort log as if its crashed batches never mutated state;
// reducers that read the mutated region may then propose differently, which
// is reported as a mismatch.
func Replay[S any, I any, T Transaction[S, T]](
	initial S,
	reducers []Reducer[S, I, T],
	log *EventLog[I, T],
	opts ...Option,
) (*Engine[S, I, T], error) {
	var start Epoch
	if first, ok := firstEvent(log); ok && first.Epoch > 0 {
		start = first.Epoch - 1
	}
	all := append([]Option{WithClock(NewClockAt(start))}, opts...)

	e := New[S, I, T](initial, all...)
	for _, r := range reducers {
		e.AddReducer(r)
	}

	for i := 0; i < log.Len(); i++ {
		want := log.At(i)
		got := e.Step(want.Input)

		last, _ := e.Log().Last()
		if err := compareEvents(want, last, got); err != nil {
			return e, err
		}
	}

	return e, nil
}

func firstEvent[I any, T any](log *EventLog[I, T]) (Event[I, T], bool) {
	if log == nil || log.Len() == 0 {
		return Event[I, T]{}, false
	}
	return log.At(0), true
}

func compareEvents[I any, T any](want, got Event[I, T], res Result) error {
	mismatch := func(format string, args ...any) error {
		return &ReplayMismatchError{
			Code:   ErrCodeReplayMismatch,
			Epoch:  want.Epoch,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	if res.Epoch != want.Epoch {
		return mismatch("epoch %d, recorded %d", res.Epoch, want.Epoch)
	}
	if got.Outcome != want.Outcome {
		return mismatch("outcome %s, recorded %s", got.Outcome, want.Outcome)
	}
	if !slices.Equal(got.ReducerIDs(), want.ReducerIDs()) {
		return mismatch("proposing reducers %v, recorded %v", got.ReducerIDs(), want.ReducerIDs())
	}
	if !slices.Equal(got.Collisions, want.Collisions) {
		return mismatch("collisions %v, recorded %v", got.Collisions, want.Collisions)
	}
	if want.Crash != nil && got.Crash != nil && got.Crash.Position != want.Crash.Position {
		return mismatch("crash at position %d, recorded %d", got.Crash.Position, want.Crash.Position)
	}
	return nil
}
