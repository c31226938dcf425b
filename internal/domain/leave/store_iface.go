package leave

import (
	"context"
	"time"

	"rosterd/internal/domain/workflow"
)

// StoreAPI is the persistence surface the service depends on. *Store is the
// pgx implementation; tests substitute in-memory fakes.
type StoreAPI interface {
	Get(ctx context.Context, id string) (Request, error)
	Insert(ctx context.Context, r Request) (Request, error)
	Balance(ctx context.Context, userID, leaveType string) (float64, bool, error)
	FirstOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) (string, workflow.Status, bool, error)
	List(ctx context.Context, userID string, statuses []workflow.Status, limit, offset int) ([]Request, error)
	Transition(ctx context.Context, req Request, expected workflow.Status, d workflow.Decision, deduct bool) error
	Balances(ctx context.Context, userID string) ([]Balance, error)
	AdjustBalance(ctx context.Context, userID, leaveType string, amount float64, reason, actorID string) error
	ListTypes(ctx context.Context) ([]LeaveType, error)
}

// RecorderAPI is the system-note sink; satisfied by *comments.Recorder.
type RecorderAPI interface {
	RecordTransition(ctx context.Context, kind workflow.Kind, requestID, actorName string, from, to workflow.Status)
	RecordCreation(ctx context.Context, kind workflow.Kind, requestID, actorName string, status workflow.Status, detail string)
}
