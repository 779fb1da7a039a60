package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/txbatch/internal/ir"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// StoredEvent is a recorded step with its stored digest.
type StoredEvent struct {
	Record ir.EventRecord
	Digest string
}

// ReducerConflicts counts how often one reducer took part in a collision.
type ReducerConflicts struct {
	ReducerID int `json:"reducer_id"`
	Steps     int `json:"steps"` // conflicting steps in which it was part of an unsafe pair
	Pairs     int `json:"pairs"` // unsafe pairs it was part of
}

// ListRuns returns every run with its step count, ordered by id.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.label, r.commit_mode, r.engine_version, r.schema_version,
		       (SELECT COUNT(*) FROM steps st WHERE st.run_id = r.id)
		FROM runs r
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Label, &r.CommitMode, &r.EngineVersion, &r.SchemaVersion, &r.Steps); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run and its steps in epoch order.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, []StoredEvent, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, commit_mode, engine_version, schema_version
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Label, &run.CommitMode, &run.EngineVersion, &run.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("read run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %q: %w", runID, err)
	}

	events, err := s.readSteps(ctx, runID)
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %q: %w", runID, err)
	}
	if err := s.attachTransactions(ctx, runID, events); err != nil {
		return Run{}, nil, fmt.Errorf("read run %q: %w", runID, err)
	}
	if err := s.attachCollisions(ctx, runID, events); err != nil {
		return Run{}, nil, fmt.Errorf("read run %q: %w", runID, err)
	}
	if err := s.attachCrashes(ctx, runID, events); err != nil {
		return Run{}, nil, fmt.Errorf("read run %q: %w", runID, err)
	}

	run.Steps = len(events)
	out := make([]StoredEvent, len(events))
	for i, ev := range events {
		out[i] = *ev
	}
	return run, out, nil
}

// Digests returns the stored event digests of a run in epoch order.
func (s *Store) Digests(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT digest FROM steps WHERE run_id = ? ORDER BY epoch ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer rows.Close()

	digests := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digests: %w", err)
	}
	return digests, nil
}

// ConflictCounts returns, per reducer, how often its transactions were part
// of an unsafe pair. Reducers never involved in a collision are omitted.
// Ordered by reducer_id.
func (s *Store) ConflictCounts(ctx context.Context, runID string) ([]ReducerConflicts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.reducer_id, COUNT(DISTINCT t.epoch), COUNT(*)
		FROM collisions c
		JOIN transactions t
		  ON t.run_id = c.run_id AND t.epoch = c.epoch
		 AND (t.position = c.i OR t.position = c.j)
		WHERE c.run_id = ?
		GROUP BY t.reducer_id
		ORDER BY t.reducer_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query conflict counts: %w", err)
	}
	defer rows.Close()

	counts := []ReducerConflicts{}
	for rows.Next() {
		var rc ReducerConflicts
		if err := rows.Scan(&rc.ReducerID, &rc.Steps, &rc.Pairs); err != nil {
			return nil, fmt.Errorf("scan conflict count: %w", err)
		}
		counts = append(counts, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflict counts: %w", err)
	}
	return counts, nil
}

// readSteps loads step rows keyed by epoch, preserving epoch order.
func (s *Store) readSteps(ctx context.Context, runID string) ([]*StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT epoch, input, outcome, digest
		FROM steps
		WHERE run_id = ?
		ORDER BY epoch ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	events := []*StoredEvent{}
	for rows.Next() {
		var (
			ev    StoredEvent
			input string
		)
		if err := rows.Scan(&ev.Record.Epoch, &input, &ev.Record.Outcome, &ev.Digest); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if ev.Record.Input, err = unmarshalValue(input); err != nil {
			return nil, fmt.Errorf("step %d input: %w", ev.Record.Epoch, err)
		}
		ev.Record.RunID = runID
		ev.Record.Transactions = []ir.TxRecord{}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return events, nil
}

func indexByEpoch(events []*StoredEvent) map[int64]*StoredEvent {
	m := make(map[int64]*StoredEvent, len(events))
	for _, ev := range events {
		m[ev.Record.Epoch] = ev
	}
	return m
}

func (s *Store) attachTransactions(ctx context.Context, runID string, events []*StoredEvent) error {
	byEpoch := indexByEpoch(events)

	rows, err := s.db.QueryContext(ctx, `
		SELECT epoch, position, reducer_id, body
		FROM transactions
		WHERE run_id = ?
		ORDER BY epoch ASC, position ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			epoch int64
			t     ir.TxRecord
			body  string
		)
		if err := rows.Scan(&epoch, &t.Position, &t.ReducerID, &body); err != nil {
			return fmt.Errorf("scan transaction: %w", err)
		}
		if t.Body, err = unmarshalValue(body); err != nil {
			return fmt.Errorf("transaction %d/%d body: %w", epoch, t.Position, err)
		}
		if ev, ok := byEpoch[epoch]; ok {
			ev.Record.Transactions = append(ev.Record.Transactions, t)
		}
	}
	return rows.Err()
}

func (s *Store) attachCollisions(ctx context.Context, runID string, events []*StoredEvent) error {
	byEpoch := indexByEpoch(events)

	rows, err := s.db.QueryContext(ctx, `
		SELECT epoch, i, j
		FROM collisions
		WHERE run_id = ?
		ORDER BY epoch ASC, i ASC, j ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query collisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			epoch int64
			p     ir.PairRecord
		)
		if err := rows.Scan(&epoch, &p.I, &p.J); err != nil {
			return fmt.Errorf("scan collision: %w", err)
		}
		if ev, ok := byEpoch[epoch]; ok {
			ev.Record.Collisions = append(ev.Record.Collisions, p)
		}
	}
	return rows.Err()
}

func (s *Store) attachCrashes(ctx context.Context, runID string, events []*StoredEvent) error {
	byEpoch := indexByEpoch(events)

	rows, err := s.db.QueryContext(ctx, `
		SELECT epoch, position, reducer_id, applied, rolled_back, error
		FROM crashes
		WHERE run_id = ?
		ORDER BY epoch ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query crashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			epoch int64
			c     ir.CrashRecord
		)
		if err := rows.Scan(&epoch, &c.Position, &c.ReducerID, &c.Applied, &c.RolledBack, &c.Error); err != nil {
			return fmt.Errorf("scan crash: %w", err)
		}
		if ev, ok := byEpoch[epoch]; ok {
			ev.Record.Crash = &c
		}
	}
	return rows.Err()
}
