package swap

import (
	"context"

	"rosterd/internal/domain/settings"
	"rosterd/internal/domain/workflow"
)

type Service struct {
	Store    StoreAPI
	Settings settings.Provider
	Recorder RecorderAPI
}

func NewService(store StoreAPI, settingsStore settings.Provider, recorder RecorderAPI) *Service {
	return &Service{Store: store, Settings: settingsStore, Recorder: recorder}
}

// CreateRequest files a swap between the requester's shift and the target
// shift, snapshotting all four original types so later roster edits cannot
// alter what an approval will exchange.
func (s *Service) CreateRequest(ctx context.Context, requesterID, requesterShiftID, targetShiftID string) (Request, error) {
	if requesterShiftID == targetShiftID {
		return Request{}, ErrSameShift
	}

	requesterShift, err := s.Store.ShiftByID(ctx, requesterShiftID)
	if err != nil {
		return Request{}, err
	}
	if requesterShift.UserID != requesterID {
		return Request{}, ErrShiftOwnership
	}

	targetShift, err := s.Store.ShiftByID(ctx, targetShiftID)
	if err != nil {
		return Request{}, err
	}
	if targetShift.UserID == requesterID {
		return Request{}, ErrSelfSwap
	}

	req := Request{
		RequesterID:      requesterID,
		TargetID:         targetShift.UserID,
		RequesterShiftID: requesterShift.ID,
		TargetShiftID:    targetShift.ID,
		RequesterDate:    requesterShift.Date,
		TargetDate:       targetShift.Date,
		RequesterType:    requesterShift.Type,
		TargetType:       targetShift.Type,
		Status:           workflow.EntryStatus(workflow.KindSwap),
	}

	if !sameDay(requesterShift.Date, targetShift.Date) {
		if crossType, found, err := s.Store.ShiftTypeByUserDate(ctx, requesterID, targetShift.Date); err != nil {
			return Request{}, err
		} else if found {
			req.RequesterCrossType = crossType
		}
		if crossType, found, err := s.Store.ShiftTypeByUserDate(ctx, targetShift.UserID, requesterShift.Date); err != nil {
			return Request{}, err
		} else if found {
			req.TargetCrossType = crossType
		}
	}

	created, err := s.Store.Insert(ctx, req)
	if err != nil {
		return Request{}, err
	}

	s.Recorder.RecordCreation(ctx, workflow.KindSwap, created.ID, requesterID, created.Status, "")
	return created, nil
}

// Transition runs one action against the swap under optimistic concurrency.
// A transition landing on approved triggers the exchange inside the store's
// transaction; its failure rolls the approval back and surfaces as an
// ExecutionError distinct from a plain conflict.
func (s *Service) Transition(ctx context.Context, requestID string, expected workflow.Status, action workflow.Action, actor workflow.Actor) (Request, error) {
	req, err := s.Store.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	actor.IsOwner = actor.UserID == req.RequesterID
	actor.IsTarget = actor.UserID == req.TargetID

	st, err := s.Settings.Get(ctx)
	if err != nil {
		return Request{}, err
	}

	decision, err := workflow.Evaluate(workflow.KindSwap, expected, action, actor, st)
	if err != nil {
		return Request{}, err
	}

	if err := s.Store.Transition(ctx, req, expected, decision); err != nil {
		return Request{}, err
	}

	s.Recorder.RecordTransition(ctx, workflow.KindSwap, req.ID, actor.UserID, expected, decision.To)
	return s.Store.Get(ctx, requestID)
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, userID string, statuses []workflow.Status, limit, offset int) ([]Request, error) {
	return s.Store.List(ctx, userID, statuses, limit, offset)
}
