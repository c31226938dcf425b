package swap

import (
	"errors"
	"fmt"
)

var (
	ErrRequestNotFound = errors.New("swap request not found")
	ErrSameShift       = errors.New("swap requires two distinct shifts")
	ErrShiftOwnership  = errors.New("shift does not belong to the requesting user")
	ErrSelfSwap        = errors.New("cannot request a swap with your own shift")
)

// ExecutionError marks a failed shift exchange. It is distinct from a
// concurrency conflict: the approval was rolled back and the shifts are
// untouched, but the failure points at store state needing attention rather
// than a stale caller.
type ExecutionError struct {
	RequestID string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("swap %s execution failed: %v", e.RequestID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
