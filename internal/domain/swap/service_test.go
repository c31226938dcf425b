package swap

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/settings"
	"rosterd/internal/domain/shift"
	"rosterd/internal/domain/workflow"
)

type fakeSettings struct {
	st settings.Settings
}

func (f *fakeSettings) Get(context.Context) (settings.Settings, error) {
	return f.st, nil
}

type fakeRecorder struct{}

func (fakeRecorder) RecordTransition(context.Context, workflow.Kind, string, string, workflow.Status, workflow.Status) {
}
func (fakeRecorder) RecordCreation(context.Context, workflow.Kind, string, string, workflow.Status, string) {
}

// fakeStore keeps requests and a small roster in memory. Transition performs
// the same compare-and-set as the SQL store and applies the exchange plan on
// approval.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	requests map[string]Request
	shifts   map[string]shift.Shift // by shift ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: make(map[string]Request),
		shifts:   make(map[string]shift.Shift),
	}
}

func (f *fakeStore) addShift(id, userID, dateStr, shiftType string) {
	f.shifts[id] = shift.Shift{ID: id, UserID: userID, Date: day(dateStr), Type: shiftType}
}

func (f *fakeStore) Get(_ context.Context, id string) (Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	return r, nil
}

func (f *fakeStore) Insert(_ context.Context, r Request) (Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = fmt.Sprintf("swap-%d", f.nextID)
	r.CreatedAt = time.Now()
	f.requests[r.ID] = r
	return r, nil
}

func (f *fakeStore) List(_ context.Context, userID string, _ []workflow.Status, _, _ int) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, r := range f.requests {
		if userID == "" || r.RequesterID == userID || r.TargetID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ShiftByID(_ context.Context, id string) (shift.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shifts[id]
	if !ok {
		return shift.Shift{}, shift.ErrShiftNotFound
	}
	return sh, nil
}

func (f *fakeStore) ShiftTypeByUserDate(_ context.Context, userID string, date time.Time) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shifts {
		if sh.UserID == userID && sh.Date.Equal(date) {
			return sh.Type, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeStore) Transition(_ context.Context, req Request, expected workflow.Status, d workflow.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.requests[req.ID]
	if !ok {
		return ErrRequestNotFound
	}
	if current.Status != expected {
		return &workflow.ConcurrencyConflictError{Expected: expected, Actual: current.Status}
	}
	current.Status = d.To
	f.requests[req.ID] = current

	if d.To == workflow.StatusApproved {
		for _, w := range ExchangeWrites(req) {
			for id, sh := range f.shifts {
				if sh.UserID == w.UserID && sh.Date.Equal(w.Date) {
					sh.Type = w.Type
					swappedWith := w.SwappedWith
					sh.SwappedWith = &swappedWith
					f.shifts[id] = sh
				}
			}
		}
	}
	return nil
}

func newTestService(store *fakeStore, st settings.Settings) *Service {
	return NewService(store, &fakeSettings{st: st}, fakeRecorder{})
}

func seededStore() *fakeStore {
	store := newFakeStore()
	store.addShift("s-a1", "u-a", "2024-01-08", shift.TypeMorning)
	store.addShift("s-b1", "u-b", "2024-01-08", shift.TypeAfternoon)
	store.addShift("s-a2", "u-a", "2024-01-09", shift.TypeBetween)
	store.addShift("s-b2", "u-b", "2024-01-09", shift.TypeDayOff)
	return store
}

func TestCreateRequestSnapshotsShifts(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, settings.Settings{})

	created, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-b2")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusPendingAcceptance, created.Status)
	assert.Equal(t, "u-b", created.TargetID)
	assert.Equal(t, shift.TypeMorning, created.RequesterType)
	assert.Equal(t, shift.TypeDayOff, created.TargetType)
	// Cross snapshots: u-a on 2024-01-09 and u-b on 2024-01-08.
	assert.Equal(t, shift.TypeBetween, created.RequesterCrossType)
	assert.Equal(t, shift.TypeAfternoon, created.TargetCrossType)
}

func TestCreateRequestSameDateHasNoCrossSnapshots(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, settings.Settings{})

	created, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-b1")
	require.NoError(t, err)
	assert.Empty(t, created.RequesterCrossType)
	assert.Empty(t, created.TargetCrossType)
}

func TestCreateRequestValidation(t *testing.T) {
	store := seededStore()
	store.addShift("s-a3", "u-a", "2024-01-10", shift.TypeMorning)
	svc := newTestService(store, settings.Settings{})

	_, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-a1")
	assert.ErrorIs(t, err, ErrSameShift)

	_, err = svc.CreateRequest(context.Background(), "u-a", "s-b1", "s-a1")
	assert.ErrorIs(t, err, ErrShiftOwnership, "requester must own the offered shift")

	_, err = svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-a3")
	assert.ErrorIs(t, err, ErrSelfSwap)

	_, err = svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-missing")
	assert.ErrorIs(t, err, shift.ErrShiftNotFound)
}

func TestFullChainExecutesExchange(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, settings.Settings{})

	created, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-b1")
	require.NoError(t, err)

	targetActor := workflow.Actor{UserID: "u-b", Role: auth.RoleAgent}
	accepted, err := svc.Transition(context.Background(), created.ID, workflow.StatusPendingAcceptance, workflow.ActionAccept, targetActor)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTL, accepted.Status)

	tl := workflow.Actor{UserID: "u-tl", Role: auth.RoleTeamLead}
	_, err = svc.Transition(context.Background(), created.ID, workflow.StatusPendingTL, workflow.ActionApprove, tl)
	require.NoError(t, err)

	wfm := workflow.Actor{UserID: "u-wfm", Role: auth.RoleWorkforceManager}
	approved, err := svc.Transition(context.Background(), created.ID, workflow.StatusPendingWFM, workflow.ActionApprove, wfm)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, approved.Status)

	assert.Equal(t, shift.TypeAfternoon, store.shifts["s-a1"].Type)
	assert.Equal(t, shift.TypeMorning, store.shifts["s-b1"].Type)
	require.NotNil(t, store.shifts["s-a1"].SwappedWith)
	assert.Equal(t, "u-b", *store.shifts["s-a1"].SwappedWith)
}

func TestExchangeUsesSnapshotsNotLiveShifts(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, settings.Settings{AutoApproveOnTL: true})

	created, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-b1")
	require.NoError(t, err)

	// Roster edit after filing: must not leak into the exchange.
	sh := store.shifts["s-a1"]
	sh.Type = shift.TypeDayOff
	store.shifts["s-a1"] = sh

	targetActor := workflow.Actor{UserID: "u-b", Role: auth.RoleAgent}
	_, err = svc.Transition(context.Background(), created.ID, workflow.StatusPendingAcceptance, workflow.ActionAccept, targetActor)
	require.NoError(t, err)

	tl := workflow.Actor{UserID: "u-tl", Role: auth.RoleTeamLead}
	approved, err := svc.Transition(context.Background(), created.ID, workflow.StatusPendingTL, workflow.ActionApprove, tl)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, approved.Status, "auto-approve on TL collapses the chain")

	// Snapshot values win over the edited roster.
	assert.Equal(t, shift.TypeAfternoon, store.shifts["s-a1"].Type)
	assert.Equal(t, shift.TypeMorning, store.shifts["s-b1"].Type)
}

func TestConcurrentAcceptAndCancel(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, settings.Settings{})

	created, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-b1")
	require.NoError(t, err)

	attempts := []struct {
		actor  workflow.Actor
		action workflow.Action
	}{
		{workflow.Actor{UserID: "u-b", Role: auth.RoleAgent}, workflow.ActionAccept},
		{workflow.Actor{UserID: "u-a", Role: auth.RoleAgent}, workflow.ActionCancel},
	}

	errs := make([]error, len(attempts))
	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, actor workflow.Actor, action workflow.Action) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), created.ID, workflow.StatusPendingAcceptance, action, actor)
		}(i, a.actor, a.action)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		var conflict *workflow.ConcurrencyConflictError
		switch {
		case err == nil:
			successes++
		case assert.ErrorAs(t, err, &conflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestRequesterCannotAccept(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, settings.Settings{})

	created, err := svc.CreateRequest(context.Background(), "u-a", "s-a1", "s-b1")
	require.NoError(t, err)

	requester := workflow.Actor{UserID: "u-a", Role: auth.RoleAgent}
	_, err = svc.Transition(context.Background(), created.ID, workflow.StatusPendingAcceptance, workflow.ActionAccept, requester)
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}
