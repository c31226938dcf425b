package leave

import (
	"errors"
	"fmt"

	"rosterd/internal/domain/workflow"
)

var (
	// ErrInvalidRange means the requested range contains no business days.
	ErrInvalidRange = errors.New("no business days in requested range")
	// ErrUnknownLeaveType means no balance record exists for (user, leave type).
	ErrUnknownLeaveType = errors.New("unknown leave type for user")
	ErrRequestNotFound  = errors.New("leave request not found")
)

// InsufficientBalanceError is a soft validation failure: request creation
// converts it into an auto-denied request instead of rejecting outright.
type InsufficientBalanceError struct {
	Requested float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %.1f days, available %.1f", e.Requested, e.Available)
}

// OverlapError reports an intersecting non-terminal request for the same user.
type OverlapError struct {
	ConflictingID string
	Status        workflow.Status
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps request %s (status %s)", e.ConflictingID, e.Status)
}
