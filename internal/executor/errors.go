package executor

import "fmt"

// StateStoreError means the alert's state could not be loaded. The
// evaluation aborts before any write so stale state never drives a
// notification decision.
type StateStoreError struct {
	AlertName string
	Err       error
}

func (e *StateStoreError) Error() string {
	return fmt.Sprintf("alert %s: state load failed: %v", e.AlertName, e.Err)
}

func (e *StateStoreError) Unwrap() error { return e.Err }

// LedgerWriteError means the execution record could not be appended. The
// evaluation aborts before persisting state so the ledger and the state
// row never diverge.
type LedgerWriteError struct {
	AlertName string
	Err       error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("alert %s: ledger write failed: %v", e.AlertName, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// StatePersistError means the new state could not be saved after the
// ledger write already succeeded. The recorded execution has no matching
// state update; callers must surface this for manual reconciliation
// rather than retry blindly, since a blind retry can double-notify.
type StatePersistError struct {
	AlertName string
	Err       error
}

func (e *StatePersistError) Error() string {
	return fmt.Sprintf("alert %s: state persist failed after ledger write: %v", e.AlertName, e.Err)
}

func (e *StatePersistError) Unwrap() error { return e.Err }
