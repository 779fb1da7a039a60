package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/txbatch/internal/engine"
	"github.com/roach88/txbatch/internal/ir"
)

// ErrRunDiverged is reported when a run id already holds a different event
// at the same epoch, e.g. the same scenario recorded again under another
// commit mode.
var ErrRunDiverged = errors.New("stored event differs")

// Recorder mirrors engine events into a Store. Register Hook with
// engine.WithEventHook. A hook cannot return an error, so the first write
// failure is kept and later events are skipped; check Err after the run.
type Recorder[I any, T any] struct {
	ctx   context.Context
	store *Store
	runID string
	enc   engine.Encoder[I, T]

	digests []string
	err     error
}

// NewRecorder returns a Recorder writing under runID.
// The engine must be built with the same run id (see engine.NewFixedGenerator).
func NewRecorder[I any, T any](ctx context.Context, st *Store, runID string, enc engine.Encoder[I, T]) *Recorder[I, T] {
	return &Recorder[I, T]{ctx: ctx, store: st, runID: runID, enc: enc}
}

// Hook writes ev. Suitable for engine.WithEventHook.
func (r *Recorder[I, T]) Hook(ev engine.Event[I, T]) {
	if r.err != nil {
		return
	}
	record := r.enc.Record(r.runID, ev)
	digest, inserted, err := r.store.WriteEvent(r.ctx, record)
	if err != nil {
		r.err = fmt.Errorf("record epoch %d: %w", ev.Epoch, err)
		return
	}
	if !inserted {
		want, err := ir.EventDigest(record)
		if err != nil {
			r.err = fmt.Errorf("record epoch %d: %w", ev.Epoch, err)
			return
		}
		if want != digest {
			r.err = fmt.Errorf("record epoch %d: run %q: %w (stored %s, now %s)",
				ev.Epoch, r.runID, ErrRunDiverged, digest, want)
			return
		}
	}
	r.digests = append(r.digests, digest)
}

// Option returns the engine option registering Hook.
func (r *Recorder[I, T]) Option() engine.Option {
	return engine.WithEventHook(r.Hook)
}

// Digests returns the digests written so far, in epoch order.
func (r *Recorder[I, T]) Digests() []string {
	return append([]string(nil), r.digests...)
}

// Err returns the first write failure, if any.
func (r *Recorder[I, T]) Err() error {
	return r.err
}
