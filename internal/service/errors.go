// Package service implements the reconciliation use cases on top of the
// beancount engine, the task/subject stores and the ledger file store.
package service

import "errors"

var (
	// ErrNotFound is returned when a task or subject id resolves to nothing.
	ErrNotFound = errors.New("not found")

	// ErrTaskNotPending rejects operations on a task that was already
	// completed or cancelled.
	ErrTaskNotPending = errors.New("task is not pending")

	// ErrDuplicateReconciliation rejects an as-of date that does not move
	// strictly forward for the subject.
	ErrDuplicateReconciliation = errors.New("as-of date already reconciled")

	// ErrAllocationMismatch rejects an allocation whose lines do not
	// account for the balance difference.
	ErrAllocationMismatch = errors.New("allocation does not match difference")

	// ErrLedgerLoad wraps unreadable or unparseable ledger input. Nothing
	// is persisted when it is returned.
	ErrLedgerLoad = errors.New("ledger load failed")
)
