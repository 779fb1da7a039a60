// Package ir provides the canonical, engine-independent representation of
// recorded steps.
//
// The engine is generic over state, input, and transaction types. Anything
// that leaves the process (store rows, golden traces, digests) is first
// lowered to an EventRecord built from the constrained Value types here.
//
// Key design constraints:
//   - NO float or null values; numbers are int64
//   - All JSON tags use snake_case
//   - Epochs are logical step numbers, never wall-clock timestamps
//
// ir imports nothing internal.
package ir
