package engine

import "github.com/roach88/txbatch/internal/ir"

// Encoder lowers a concrete engine's inputs and transactions to ir values
// so events can leave the process as ir.EventRecord.
type Encoder[I any, T any] struct {
	Input func(I) ir.Value
	Tx    func(T) ir.Value
}

// Record converts ev to its canonical record under runID.
func (enc Encoder[I, T]) Record(runID string, ev Event[I, T]) ir.EventRecord {
	rec := ir.EventRecord{
		RunID:        runID,
		Epoch:        int64(ev.Epoch),
		Input:        enc.Input(ev.Input),
		Outcome:      ev.Outcome.String(),
		Transactions: make([]ir.TxRecord, len(ev.Transactions)),
	}

	for i, s := range ev.Transactions {
		rec.Transactions[i] = ir.TxRecord{
			Position:  i,
			ReducerID: int(s.ReducerID),
			Body:      enc.Tx(s.Tx),
		}
	}

	for _, p := range ev.Collisions {
		rec.Collisions = append(rec.Collisions, ir.PairRecord{I: p.I, J: p.J})
	}

	if c := ev.Crash; c != nil {
		rec.Crash = &ir.CrashRecord{
			Position:   c.Position,
			ReducerID:  int(c.ReducerID),
			Applied:    c.Applied,
			RolledBack: c.RolledBack,
			Error:      c.Err.Error(),
		}
	}
	return rec
}

// Records converts every logged event, in order.
func (enc Encoder[I, T]) Records(runID string, log *EventLog[I, T]) []ir.EventRecord {
	out := make([]ir.EventRecord, log.Len())
	for i := range out {
		out[i] = enc.Record(runID, log.At(i))
	}
	return out
}
