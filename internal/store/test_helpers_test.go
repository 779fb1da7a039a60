package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/txbatch/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a best-effort run row.
func createTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.CreateRun(context.Background(), Run{ID: id, Label: "test", CommitMode: "best-effort"}); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
}

func exchange(a, b int64) ir.Value {
	return ir.Array{ir.Object{"a": ir.Int(a), "b": ir.Int(b)}}
}

func committedRecord(runID string, epoch int64) ir.EventRecord {
	return ir.EventRecord{
		RunID:   runID,
		Epoch:   epoch,
		Input:   ir.String("tick"),
		Outcome: "committed",
		Transactions: []ir.TxRecord{
			{Position: 0, ReducerID: 0, Body: exchange(0, 1)},
			{Position: 1, ReducerID: 1, Body: exchange(2, 3)},
		},
	}
}

func conflictRecord(runID string, epoch int64) ir.EventRecord {
	return ir.EventRecord{
		RunID:   runID,
		Epoch:   epoch,
		Input:   ir.String("clash"),
		Outcome: "conflict",
		Transactions: []ir.TxRecord{
			{Position: 0, ReducerID: 0, Body: exchange(0, 1)},
			{Position: 1, ReducerID: 1, Body: exchange(2, 3)},
			{Position: 2, ReducerID: 2, Body: exchange(1, 2)},
		},
		Collisions: []ir.PairRecord{{I: 2, J: 0}, {I: 2, J: 1}},
	}
}

func crashedRecord(runID string, epoch int64) ir.EventRecord {
	return ir.EventRecord{
		RunID:   runID,
		Epoch:   epoch,
		Input:   ir.String("crash"),
		Outcome: "crashed",
		Transactions: []ir.TxRecord{
			{Position: 0, ReducerID: 0, Body: exchange(0, 1)},
			{Position: 1, ReducerID: 3, Body: exchange(2, 9)},
		},
		Crash: &ir.CrashRecord{
			Position:  1,
			ReducerID: 3,
			Applied:   1,
			Error:     "op 0: bitvec: index out of range: exchange(2,9) on 4 bits",
		},
	}
}
