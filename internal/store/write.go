package store

import (
	"context"
	"fmt"

	"github.com/roach88/txbatch/internal/ir"
)

// Run describes one engine instance.
type Run struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	CommitMode    string `json:"commit_mode"`
	EngineVersion string `json:"engine_version"`
	SchemaVersion string `json:"schema_version"`

	// Steps is filled by ListRuns and ReadRun.
	Steps int `json:"steps"`
}

// CreateRun inserts a run row. Empty version fields default to the current
// ir versions. Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.SchemaVersion == "" {
		run.SchemaVersion = ir.SchemaVersion
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, commit_mode, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Label, run.CommitMode, run.EngineVersion, run.SchemaVersion)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// WriteEvent stores one step atomically: the step row plus its
// transaction, collision, and crash rows. Returns the event digest and
// whether a new step was inserted. Re-writing an existing (run, epoch) is
// a no-op that returns the stored digest.
//
// The run must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, rec ir.EventRecord) (digest string, inserted bool, err error) {
	digest, err = ir.EventDigest(rec)
	if err != nil {
		return "", false, fmt.Errorf("write event: %w", err)
	}
	input, err := marshalValue(rec.Input)
	if err != nil {
		return "", false, fmt.Errorf("write event: epoch %d input: %w", rec.Epoch, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write event: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO steps (run_id, epoch, input, outcome, digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, epoch) DO NOTHING
	`, rec.RunID, rec.Epoch, input, rec.Outcome, digest)
	if err != nil {
		return "", false, fmt.Errorf("write event: epoch %d: %w", rec.Epoch, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write event: rows affected: %w", err)
	}
	if rows == 0 {
		var stored string
		err := tx.QueryRowContext(ctx,
			`SELECT digest FROM steps WHERE run_id = ? AND epoch = ?`,
			rec.RunID, rec.Epoch,
		).Scan(&stored)
		if err != nil {
			return "", false, fmt.Errorf("write event: read existing digest: %w", err)
		}
		return stored, false, nil
	}

	for _, t := range rec.Transactions {
		body, err := marshalValue(t.Body)
		if err != nil {
			return "", false, fmt.Errorf("write event: epoch %d tx %d: %w", rec.Epoch, t.Position, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (run_id, epoch, position, reducer_id, body)
			VALUES (?, ?, ?, ?, ?)
		`, rec.RunID, rec.Epoch, t.Position, t.ReducerID, body); err != nil {
			return "", false, fmt.Errorf("write event: epoch %d tx %d: %w", rec.Epoch, t.Position, err)
		}
	}

	for _, p := range rec.Collisions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collisions (run_id, epoch, i, j)
			VALUES (?, ?, ?, ?)
		`, rec.RunID, rec.Epoch, p.I, p.J); err != nil {
			return "", false, fmt.Errorf("write event: epoch %d collision (%d,%d): %w", rec.Epoch, p.I, p.J, err)
		}
	}

	if c := rec.Crash; c != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO crashes (run_id, epoch, position, reducer_id, applied, rolled_back, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.RunID, rec.Epoch, c.Position, c.ReducerID, c.Applied, c.RolledBack, c.Error); err != nil {
			return "", false, fmt.Errorf("write event: epoch %d crash: %w", rec.Epoch, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write event: commit: %w", err)
	}
	return digest, true, nil
}
