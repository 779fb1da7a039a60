package engine

import "fmt"

// CommitMode selects what happens to state when a transaction fails mid-batch.
type CommitMode int

const (
	// CommitBestEffort keeps the mutations of transactions applied before the
	// failing one. No rollback; the engine is marked tainted.
	CommitBestEffort CommitMode = iota

	// CommitRollback snapshots state before the first apply and restores the
	// snapshot on crash. Requires a clone function (see WithRollback).
	CommitRollback
)

// String returns the configuration name of the mode.
func (m CommitMode) String() string {
	switch m {
	case CommitBestEffort:
		return "best-effort"
	case CommitRollback:
		return "rollback"
	default:
		return fmt.Sprintf("commit-mode(%d)", int(m))
	}
}

// ParseCommitMode parses "best-effort" or "rollback".
// The empty string selects CommitBestEffort.
func ParseCommitMode(s string) (CommitMode, error) {
	switch s {
	case "", "best-effort":
		return CommitBestEffort, nil
	case "rollback":
		return CommitRollback, nil
	default:
		return 0, fmt.Errorf("unknown commit mode %q: must be best-effort or rollback", s)
	}
}
