// Package store provides a SQLite index of recorded engine steps.
//
// The store is a query surface, not a recovery source: the engine never
// reads it back. A run is mirrored into it through a Recorder hook so
// traces can be listed, inspected, and compared after the fact.
//
// Tables:
//   - runs: one row per engine instance
//   - steps: one row per epoch with outcome and content digest
//   - transactions: every derived transaction, applied or not
//   - collisions: every unsafe pair of a conflicting step
//   - crashes: the failing transaction of a crashed step
//
// # Critical Patterns
//
// Logical time only:
//   - Ordering uses epoch and position, NEVER timestamps
//
// Deterministic query results:
//   - All queries MUST include ORDER BY epoch ASC, position ASC (or the
//     equivalent key for the table)
//
// Idempotent writes:
//   - Re-writing the same (run_id, epoch) is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Digests are computed by ir.EventDigest over RFC 8785 canonical JSON.
package store
