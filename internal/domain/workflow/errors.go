package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden means the transition exists but the acting user may not take it.
	ErrForbidden = errors.New("actor not allowed to perform this transition")
	// ErrExceptionsDisabled gates the denied -> pending_tl retry on settings.
	ErrExceptionsDisabled = errors.New("exception requests are disabled")
)

// InvalidTransitionError is returned when no transition is defined for the
// (kind, from, action) combination, including any action out of a terminal state.
type InvalidTransitionError struct {
	Kind   Kind
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no %s transition %q from status %q", e.Kind, e.Action, e.From)
}

// ConcurrencyConflictError is returned when the conditional status update finds
// the persisted status no longer matches what the caller last saw. The caller
// must refetch before retrying.
type ConcurrencyConflictError struct {
	Expected Status
	Actual   Status
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("status changed: expected %q, found %q", e.Expected, e.Actual)
}
