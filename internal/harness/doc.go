// Package harness runs bit-vector scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	initial: "0000"          # or size: 4 for an all-zero vector
//	commit_mode: best-effort # or rollback
//	reducers:
//	  - name: left
//	    exchanges: [[0, 1]]
//	    when: [tick]         # optional; omitted means every input
//	steps:
//	  - input: tick
//	    expect:
//	      outcome: conflict
//	      collisions: [[1, 0]]
//	      bits: "0000"
//	assertions:
//	  - type: final_bits
//	    bits: "0000"
//	  - type: replay_deterministic
//
// Files are decoded strictly (unknown keys are errors) and then checked
// against an embedded CUE schema before semantic validation.
//
// # Assertion Types
//
//   - final_bits: the vector after the last step
//   - outcome_count: how many steps ended with an outcome
//   - reducer_conflicts: conflicting steps a reducer took part in, read
//     back from the store
//   - replay_deterministic: rebuilding from the event log reproduces every
//     event digest
//
// # Deterministic Testing
//
// Every run uses a fixed run id (scenario.run_id, or derived from the
// name) and the engine's logical epoch clock, and mirrors its events into
// an in-memory SQLite store. Identical scenarios produce byte-identical
// traces for golden comparison.
package harness
