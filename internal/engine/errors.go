package engine

import (
	"errors"
	"fmt"
)

// StepErrorCode categorizes the ways a step can be rejected.
type StepErrorCode string

const (
	// ErrCodeConflict indicates at least one derived pair was unsafe to combine.
	ErrCodeConflict StepErrorCode = "TX_CONFLICT"

	// ErrCodeCrashed indicates a transaction's Apply failed mid-batch.
	ErrCodeCrashed StepErrorCode = "TX_CRASHED"

	// ErrCodeReplayMismatch indicates a rebuilt engine diverged from its log.
	ErrCodeReplayMismatch StepErrorCode = "REPLAY_MISMATCH"
)

// ConflictError reports the colliding pairs of a rejected step.
// State is untouched when this error is produced.
type ConflictError struct {
	Code  StepErrorCode
	Epoch Epoch

	// Pairs holds positions into the step's derived transaction list.
	Pairs []CollisionPair
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %d colliding pair(s) at epoch %d: %v", e.Code, len(e.Pairs), e.Epoch, e.Pairs)
}

// CrashError reports the transaction whose Apply aborted a batch.
//
// With CommitBestEffort the transactions before Position have already
// mutated state. RolledBack is true only under CommitRollback.
type CrashError struct {
	Code       StepErrorCode
	Epoch      Epoch
	Position   int
	ReducerID  ReducerID
	Applied    int
	RolledBack bool

	// Err is the transaction's own error.
	Err error
}

// Error implements the error interface.
func (e *CrashError) Error() string {
	return fmt.Sprintf("%s: transaction %d (reducer %d) failed at epoch %d after %d applied: %v",
		e.Code, e.Position, e.ReducerID, e.Epoch, e.Applied, e.Err)
}

// Unwrap returns the transaction's error.
func (e *CrashError) Unwrap() error {
	return e.Err
}

// ReplayMismatchError is returned by Replay when a rebuilt step diverges
// from the recorded one.
type ReplayMismatchError struct {
	Code   StepErrorCode
	Epoch  Epoch
	Reason string
}

// Error implements the error interface.
func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("%s: epoch %d: %s", e.Code, e.Epoch, e.Reason)
}

// IsConflict returns true if err is, or wraps, a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsCrash returns true if err is, or wraps, a CrashError.
func IsCrash(err error) bool {
	var ce *CrashError
	return errors.As(err, &ce)
}

// IsReplayMismatch returns true if err is, or wraps, a ReplayMismatchError.
func IsReplayMismatch(err error) bool {
	var re *ReplayMismatchError
	return errors.As(err, &re)
}

func newConflictError(epoch Epoch, pairs []CollisionPair) *ConflictError {
	return &ConflictError{
		Code:  ErrCodeConflict,
		Epoch: epoch,
		Pairs: pairs,
	}
}

func newCrashError(epoch Epoch, position int, id ReducerID, cause error) *CrashError {
	return &CrashError{
		Code:      ErrCodeCrashed,
		Epoch:     epoch,
		Position:  position,
		ReducerID: id,
		Applied:   position,
		Err:       cause,
	}
}
