package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/leave"
	"rosterd/internal/domain/shift"
	"rosterd/internal/domain/swap"
	"rosterd/internal/domain/workflow"
	"rosterd/internal/transport/http/api"
)

// FailDomain maps domain errors onto the JSON envelope. Conflicts carry the
// expected/actual pair so the client can refresh and retry; a swap execution
// failure is surfaced as a server error because it means the approval was
// rolled back, not that the caller was stale.
func FailDomain(w http.ResponseWriter, err error, requestID string) {
	var conflict *workflow.ConcurrencyConflictError
	var invalid *workflow.InvalidTransitionError
	var overlap *leave.OverlapError
	var insufficient *leave.InsufficientBalanceError
	var execution *swap.ExecutionError

	switch {
	case errors.As(err, &conflict):
		api.FailWithDetails(w, http.StatusConflict, "concurrency_conflict",
			"request status changed, refresh and retry",
			map[string]any{"expected": conflict.Expected, "actual": conflict.Actual}, requestID)
	case errors.As(err, &invalid):
		api.Fail(w, http.StatusConflict, "invalid_transition", invalid.Error(), requestID)
	case errors.As(err, &overlap):
		api.FailWithDetails(w, http.StatusConflict, "overlapping_request", overlap.Error(),
			map[string]any{"conflictingId": overlap.ConflictingID, "status": overlap.Status}, requestID)
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_balance", insufficient.Error(),
			map[string]any{"requested": insufficient.Requested, "available": insufficient.Available}, requestID)
	case errors.As(err, &execution):
		api.Fail(w, http.StatusInternalServerError, "swap_execution_failed",
			"shift exchange failed, approval was not applied", requestID)
	case errors.Is(err, workflow.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, workflow.ErrExceptionsDisabled):
		api.Fail(w, http.StatusForbidden, "exceptions_disabled", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), requestID)
	case errors.Is(err, leave.ErrUnknownLeaveType):
		api.Fail(w, http.StatusBadRequest, "unknown_leave_type", err.Error(), requestID)
	case errors.Is(err, swap.ErrSameShift),
		errors.Is(err, swap.ErrShiftOwnership),
		errors.Is(err, swap.ErrSelfSwap):
		api.Fail(w, http.StatusBadRequest, "invalid_swap", err.Error(), requestID)
	case errors.Is(err, leave.ErrRequestNotFound),
		errors.Is(err, swap.ErrRequestNotFound),
		errors.Is(err, shift.ErrShiftNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	default:
		slog.Error("unhandled domain error", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
