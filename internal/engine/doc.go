// Package engine implements the optimistic, collision-checked transaction
// batching engine.
//
// The engine owns an application state and advances it one discrete step at
// a time. Each step asks every registered reducer for at most one candidate
// transaction, verifies that the candidates are pairwise safe to combine, and
// then either commits all of them or rejects the step without touching state.
//
// ARCHITECTURE:
//
// Single Owner:
// An Engine is driven by exactly one goroutine. Step and AddReducer run to
// completion before returning, never suspend, and take no context. There is
// no internal locking; a concurrent or re-entrant call is detected at runtime
// and panics.
//
// Step Processing Flow:
//  1. Advance epoch (unconditionally, even if the step fails)
//  2. Derive: every reducer, in registration order, may propose a transaction
//  3. Collision-check: every unordered pair (i, j), i > j, of derived transactions
//  4. Conflict: any unsafe pair rejects the whole batch; state untouched
//  5. Commit: apply in derivation order; the first failing apply stops the batch
//  6. Success: every transaction applied
//
// Every step, whatever its outcome, appends one Event to the log.
//
// Crash Semantics:
// With CommitBestEffort (the default) a crash leaves the transactions before
// the failing one committed. The engine reports the crash, marks itself
// tainted and does not roll back. With CommitRollback the state is cloned
// before the first apply and restored on crash.
//
// CRITICAL PATTERNS:
//
// Logical Epoch:
// The step counter is the only notion of time. Events are stamped with it;
// wall-clock time is never used for ordering.
//
// Deterministic Scheduling:
// Reducers are evaluated and transactions applied in registration order.
// Registration order is permanent. Collision detection is O(n²) in the number
// of derived transactions per step.
package engine
