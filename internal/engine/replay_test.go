package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayReducers(boom error) []Reducer[*cells, string, *setTx] {
	return []Reducer[*cells, string, *setTx]{
		on("a", set("a", 1)),
		on("conflict", set("k", 1)),
		on("conflict", set("k", 2)),
		on("crash", set("b", 2)),
		on("crash", failing("c", boom)),
	}
}

func TestReplay_RebuildsIdenticalState(t *testing.T) {
	boom := errors.New("boom")
	reducers := replayReducers(boom)

	orig := newCellEngine(newCells())
	for _, r := range reducers {
		orig.AddReducer(r)
	}
	for _, in := range []string{"a", "conflict", "crash", "noop"} {
		orig.Step(in)
	}
	require.True(t, orig.Tainted())

	rebuilt, err := Replay(newCells(), reducers, orig.Log(),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-replay")),
	)
	require.NoError(t, err)

	assert.Equal(t, orig.Observe().v, rebuilt.Observe().v)
	assert.Equal(t, orig.Epoch(), rebuilt.Epoch())
	assert.Equal(t, orig.Log().Len(), rebuilt.Log().Len())
	assert.True(t, rebuilt.Tainted(), "best-effort replay reproduces the partial mutation")
}

func TestReplay_WithRollbackDropsPartialMutation(t *testing.T) {
	boom := errors.New("boom")
	reducers := replayReducers(boom)

	orig := newCellEngine(newCells())
	for _, r := range reducers {
		orig.AddReducer(r)
	}
	orig.Step("a")
	orig.Step("crash")
	require.Equal(t, 2, orig.Observe().v["b"])

	rebuilt, err := Replay(newCells(), reducers, orig.Log(),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-replay")),
		WithRollback((*cells).clone),
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 1}, rebuilt.Observe().v)
	assert.False(t, rebuilt.Tainted())
}

func TestReplay_DetectsDivergence(t *testing.T) {
	orig := newCellEngine(newCells())
	orig.AddReducer(always(set("a", 1)))
	orig.AddReducer(always(set("b", 1)))
	orig.Step("x")

	// Rebuilding with a reducer that now collides must not pass silently.
	changed := []Reducer[*cells, string, *setTx]{
		always(set("a", 1)),
		always(set("a", 2)),
	}
	rebuilt, err := Replay(newCells(), changed, orig.Log(),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-replay")),
	)

	require.Error(t, err)
	assert.True(t, IsReplayMismatch(err))
	assert.Contains(t, err.Error(), "outcome conflict, recorded committed")
	assert.Equal(t, Epoch(1), rebuilt.Epoch())
}

func TestReplay_DetectsReducerSetChange(t *testing.T) {
	orig := newCellEngine(newCells())
	orig.AddReducer(always(set("a", 1)))
	orig.Step("x")

	rebuilt, err := Replay(newCells(), []Reducer[*cells, string, *setTx]{never(), always(set("a", 1))}, orig.Log(),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-replay")),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "proposing reducers [1], recorded [0]")
	assert.NotNil(t, rebuilt)
}

func TestReplay_ResumesFromLogEpoch(t *testing.T) {
	orig := newCellEngine(newCells(), WithClock(NewClockAt(9)))
	orig.AddReducer(always(set("a", 1)))
	orig.Step("x")
	orig.Step("y")

	rebuilt, err := Replay(newCells(), []Reducer[*cells, string, *setTx]{always(set("a", 1))}, orig.Log(),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-replay")),
	)
	require.NoError(t, err)
	assert.Equal(t, Epoch(11), rebuilt.Epoch())
}

func TestReplay_EmptyLog(t *testing.T) {
	orig := newCellEngine(newCells())

	rebuilt, err := Replay(newCells(), nil, orig.Log(),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-replay")),
	)
	require.NoError(t, err)
	assert.Equal(t, Epoch(0), rebuilt.Epoch())
	assert.Equal(t, 0, rebuilt.Log().Len())
}
