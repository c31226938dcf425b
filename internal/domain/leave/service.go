package leave

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"rosterd/internal/domain/settings"
	"rosterd/internal/domain/workflow"
)

// truncateNotes caps notes at MaxNoteLength bytes without splitting a rune.
func truncateNotes(notes string) string {
	if len(notes) <= MaxNoteLength {
		return notes
	}
	cut := MaxNoteLength
	for cut > 0 && !utf8.RuneStart(notes[cut]) {
		cut--
	}
	return notes[:cut]
}

type Service struct {
	Store    StoreAPI
	Settings settings.Provider
	Recorder RecorderAPI
}

func NewService(store StoreAPI, settingsStore settings.Provider, recorder RecorderAPI) *Service {
	return &Service{Store: store, Settings: settingsStore, Recorder: recorder}
}

type ValidationResult struct {
	RequestedDays    float64 `json:"requestedDays"`
	AvailableBalance float64 `json:"availableBalance"`
}

// Validate runs the balance and overlap checks without mutating anything.
// excludeRequestID skips one of the user's own requests when re-validating an
// edit. The overlap check runs before the insufficiency check so an
// overlapping request can never slip into the store as auto-denied and later
// re-enter the chain through an exception.
func (s *Service) Validate(ctx context.Context, userID, leaveType string, start, end time.Time, excludeRequestID string) (ValidationResult, error) {
	days := BusinessDays(start, end)
	if days == 0 {
		return ValidationResult{}, ErrInvalidRange
	}

	available, found, err := s.Store.Balance(ctx, userID, leaveType)
	if err != nil {
		return ValidationResult{}, err
	}
	if !found {
		return ValidationResult{}, ErrUnknownLeaveType
	}

	conflictID, conflictStatus, overlaps, err := s.Store.FirstOverlapping(ctx, userID, start, end, excludeRequestID)
	if err != nil {
		return ValidationResult{}, err
	}
	if overlaps {
		return ValidationResult{}, &OverlapError{ConflictingID: conflictID, Status: conflictStatus}
	}

	result := ValidationResult{RequestedDays: float64(days), AvailableBalance: available}
	if available < float64(days) {
		return result, &InsufficientBalanceError{Requested: float64(days), Available: available}
	}
	return result, nil
}

// CreateRequest validates and stores a new leave request. An insufficient
// balance does not reject creation: the request is stored auto-denied so the
// owner can later ask for an exception.
func (s *Service) CreateRequest(ctx context.Context, userID, leaveType string, start, end time.Time, notes string) (Request, error) {
	notes = truncateNotes(strings.TrimSpace(notes))

	status := workflow.EntryStatus(workflow.KindLeave)
	detail := ""
	result, err := s.Validate(ctx, userID, leaveType, start, end, "")
	var insufficient *InsufficientBalanceError
	switch {
	case err == nil:
	case errors.As(err, &insufficient):
		status = workflow.StatusDenied
		detail = insufficient.Error()
	default:
		return Request{}, err
	}

	created, err := s.Store.Insert(ctx, Request{
		UserID:    userID,
		LeaveType: leaveType,
		StartDate: start,
		EndDate:   end,
		Days:      result.RequestedDays,
		Status:    status,
		Notes:     notes,
	})
	if err != nil {
		return Request{}, err
	}

	s.Recorder.RecordCreation(ctx, workflow.KindLeave, created.ID, userID, status, detail)
	return created, nil
}

// Transition runs one approval-chain action under optimistic concurrency.
// expected is the status the caller last saw; if the stored status has moved
// on, the conditional update loses and a ConcurrencyConflictError is returned
// with no partial writes.
func (s *Service) Transition(ctx context.Context, requestID string, expected workflow.Status, action workflow.Action, actor workflow.Actor) (Request, error) {
	req, err := s.Store.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	actor.IsOwner = actor.UserID == req.UserID

	st, err := s.Settings.Get(ctx)
	if err != nil {
		return Request{}, err
	}

	decision, err := workflow.Evaluate(workflow.KindLeave, expected, action, actor, st)
	if err != nil {
		return Request{}, err
	}

	deduct := decision.To == workflow.StatusApproved
	if err := s.Store.Transition(ctx, req, expected, decision, deduct); err != nil {
		return Request{}, err
	}

	s.Recorder.RecordTransition(ctx, workflow.KindLeave, req.ID, actor.UserID, expected, decision.To)
	return s.Store.Get(ctx, requestID)
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, userID string, statuses []workflow.Status, limit, offset int) ([]Request, error) {
	return s.Store.List(ctx, userID, statuses, limit, offset)
}

func (s *Service) Balances(ctx context.Context, userID string) ([]Balance, error) {
	return s.Store.Balances(ctx, userID)
}

func (s *Service) AdjustBalance(ctx context.Context, userID, leaveType string, amount float64, reason, actorID string) error {
	return s.Store.AdjustBalance(ctx, userID, leaveType, amount, reason, actorID)
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return s.Store.ListTypes(ctx)
}
