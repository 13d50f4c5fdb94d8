// Package apperr defines the typed errors returned by the workflow core.
// Callers match them with errors.As; none of them are used for control flow
// inside a component.
package apperr

import "fmt"

// ValidationError reports a malformed command payload (e.g. unknown category).
// Safe to surface to end users.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown workflow item ID.
type NotFoundError struct {
	ItemID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("workflow item %s not found", e.ItemID)
}

// PermissionDeniedError reports a failed role or ownership check.
// Safe to surface to end users.
type PermissionDeniedError struct {
	Role       string
	Transition string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %s is not allowed to %s", e.Role, e.Transition)
}

// InvalidTransitionError reports an FSM guard failure: wrong source state,
// terminal state, or a skipped state. Safe to surface to end users.
type InvalidTransitionError struct {
	From       string
	Transition string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Transition, e.From)
}

// ConcurrencyConflictError reports a lost race for the same item.
// The caller should retry from a fresh read.
type ConcurrencyConflictError struct {
	ItemID string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of workflow item %s", e.ItemID)
}

// IntegrityViolationError reports a hash mismatch in the audit ledger, or a
// refused append while an integrity alarm is open. Never caused by normal
// operation; routed to the operational alerting path, not to end users.
type IntegrityViolationError struct {
	Sequence uint64
	Expected string
	Actual   string
}

func (e *IntegrityViolationError) Error() string {
	if e.Expected == "" && e.Actual == "" {
		return fmt.Sprintf("ledger integrity alarm open (sequence %d); appends halted", e.Sequence)
	}
	return fmt.Sprintf("ledger corrupted at sequence %d: expected hash %s, stored %s", e.Sequence, e.Expected, e.Actual)
}
