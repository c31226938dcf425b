package leave

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/settings"
	"rosterd/internal/domain/workflow"
)

type fakeSettings struct {
	st settings.Settings
}

func (f *fakeSettings) Get(context.Context) (settings.Settings, error) {
	return f.st, nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	notes []string
}

func (f *fakeRecorder) RecordTransition(_ context.Context, _ workflow.Kind, requestID, _ string, from, to workflow.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, fmt.Sprintf("%s: %s -> %s", requestID, from, to))
}

func (f *fakeRecorder) RecordCreation(_ context.Context, _ workflow.Kind, requestID, _ string, status workflow.Status, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, fmt.Sprintf("%s: created %s", requestID, status))
}

// fakeStore is an in-memory StoreAPI whose Transition performs the same
// compare-and-set the SQL store does, under a mutex, so concurrency behavior
// can be exercised without a database.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	requests map[string]Request
	balances map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: make(map[string]Request),
		balances: make(map[string]float64),
	}
}

func balanceKey(userID, leaveType string) string { return userID + "/" + leaveType }

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
	r.ID = fmt.Sprintf("req-%d", f.nextID)
	r.CreatedAt = time.Now()
	f.requests[r.ID] = r
	return r, nil
}

func (f *fakeStore) Balance(_ context.Context, userID, leaveType string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[balanceKey(userID, leaveType)]
	return b, ok, nil
}

func (f *fakeStore) FirstOverlapping(_ context.Context, userID string, start, end time.Time, excludeID string) (string, workflow.Status, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.UserID != userID || r.ID == excludeID {
			continue
		}
		switch r.Status {
		case workflow.StatusApproved, workflow.StatusPendingTL, workflow.StatusPendingWFM:
		default:
			continue
		}
		if !r.StartDate.After(end) && !r.EndDate.Before(start) {
			return r.ID, r.Status, true, nil
		}
	}
	return "", "", false, nil
}

func (f *fakeStore) List(_ context.Context, userID string, _ []workflow.Status, _, _ int) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, r := range f.requests {
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Transition(_ context.Context, req Request, expected workflow.Status, d workflow.Decision, deduct bool) error {
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
	if deduct {
		f.balances[balanceKey(req.UserID, req.LeaveType)] -= req.Days
	}
	return nil
}

func (f *fakeStore) Balances(_ context.Context, userID string) ([]Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Balance
	for key, b := range f.balances {
		out = append(out, Balance{UserID: userID, LeaveType: key, Balance: b})
	}
	return out, nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, userID, leaveType string, amount float64, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[balanceKey(userID, leaveType)] += amount
	return nil
}

func (f *fakeStore) ListTypes(context.Context) ([]LeaveType, error) {
	return []LeaveType{{Code: "annual", Name: "Annual leave", AccrualRate: 1.75}}, nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, &fakeSettings{st: settings.Settings{AllowLeaveExceptions: true}}, &fakeRecorder{})
}

func TestCreateRequestHappyPath(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "trip")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTL, created.Status)
	assert.Equal(t, 5.0, created.Days)
}

func TestCreateRequestInsufficientBalanceAutoDenies(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 3
	svc := newTestService(store)

	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDenied, created.Status)
	assert.Equal(t, 5.0, created.Days)
}

func TestCreateRequestRejectsOverlap(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 20
	svc := newTestService(store)

	first, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "")
	require.NoError(t, err)

	_, err = svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-10"), date("2024-01-15"), "")
	var overlap *OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, first.ID, overlap.ConflictingID)
	assert.Equal(t, workflow.StatusPendingTL, overlap.Status)

	// Touching ranges that share no day do not overlap.
	_, err = svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-15"), date("2024-01-16"), "")
	require.NoError(t, err)
}

func TestCreateRequestInvalidRange(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	_, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-12"), date("2024-01-08"), "")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-13"), date("2024-01-14"), "")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCreateRequestUnknownType(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.CreateRequest(context.Background(), "u-1", "sabbatical", date("2024-01-08"), date("2024-01-12"), "")
	assert.ErrorIs(t, err, ErrUnknownLeaveType)
}

func TestTransitionDeductsOnFinalApproval(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "")
	require.NoError(t, err)

	tl := workflow.Actor{UserID: "u-tl", Role: auth.RoleTeamLead}
	updated, err := svc.Transition(context.Background(), created.ID, workflow.StatusPendingTL, workflow.ActionApprove, tl)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingWFM, updated.Status)
	assert.Equal(t, 10.0, store.balances[balanceKey("u-1", "annual")], "no deduction before final approval")

	wfm := workflow.Actor{UserID: "u-wfm", Role: auth.RoleWorkforceManager}
	updated, err = svc.Transition(context.Background(), created.ID, workflow.StatusPendingWFM, workflow.ActionApprove, wfm)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, updated.Status)
	assert.Equal(t, 5.0, store.balances[balanceKey("u-1", "annual")])
}

func TestConcurrentTransitionsOneWinner(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "")
	require.NoError(t, err)

	actors := []struct {
		actor  workflow.Actor
		action workflow.Action
	}{
		{workflow.Actor{UserID: "u-tl", Role: auth.RoleTeamLead}, workflow.ActionApprove},
		{workflow.Actor{UserID: "u-1", Role: auth.RoleAgent}, workflow.ActionCancel},
	}

	errs := make([]error, len(actors))
	var wg sync.WaitGroup
	for i, a := range actors {
		wg.Add(1)
		go func(i int, actor workflow.Actor, action workflow.Action) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), created.ID, workflow.StatusPendingTL, action, actor)
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
			assert.Equal(t, workflow.StatusPendingTL, conflict.Expected)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestTransitionForbiddenForWrongActor(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "")
	require.NoError(t, err)

	other := workflow.Actor{UserID: "u-2", Role: auth.RoleAgent}
	_, err = svc.Transition(context.Background(), created.ID, workflow.StatusPendingTL, workflow.ActionCancel, other)
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestExceptionReentersChain(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 2
	svc := newTestService(store)

	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), "")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusDenied, created.Status)

	owner := workflow.Actor{UserID: "u-1", Role: auth.RoleAgent}
	updated, err := svc.Transition(context.Background(), created.ID, workflow.StatusDenied, workflow.ActionAskException, owner)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTL, updated.Status)
}

func TestNotesTruncatedToLimit(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	long := make([]byte, MaxNoteLength+500)
	for i := range long {
		long[i] = 'x'
	}
	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), string(long))
	require.NoError(t, err)
	assert.Len(t, created.Notes, MaxNoteLength)
}

func TestNotesTruncationKeepsRunesIntact(t *testing.T) {
	store := newFakeStore()
	store.balances[balanceKey("u-1", "annual")] = 10
	svc := newTestService(store)

	// A two-byte rune straddles the byte limit; the cut must land before it.
	notes := strings.Repeat("x", MaxNoteLength-1) + "éé"
	created, err := svc.CreateRequest(context.Background(), "u-1", "annual", date("2024-01-08"), date("2024-01-12"), notes)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(created.Notes))
	assert.Len(t, created.Notes, MaxNoteLength-1)
}
