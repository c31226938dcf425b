package swap

import (
	"context"
	"time"

	"rosterd/internal/domain/shift"
	"rosterd/internal/domain/workflow"
)

// StoreAPI is the persistence surface the service depends on; *Store is the
// pgx implementation, tests use in-memory fakes.
type StoreAPI interface {
	Get(ctx context.Context, id string) (Request, error)
	Insert(ctx context.Context, r Request) (Request, error)
	List(ctx context.Context, userID string, statuses []workflow.Status, limit, offset int) ([]Request, error)
	ShiftByID(ctx context.Context, id string) (shift.Shift, error)
	ShiftTypeByUserDate(ctx context.Context, userID string, date time.Time) (string, bool, error)
	Transition(ctx context.Context, req Request, expected workflow.Status, d workflow.Decision) error
}

// RecorderAPI is the system-note sink; satisfied by *comments.Recorder.
type RecorderAPI interface {
	RecordTransition(ctx context.Context, kind workflow.Kind, requestID, actorName string, from, to workflow.Status)
	RecordCreation(ctx context.Context, kind workflow.Kind, requestID, actorName string, status workflow.Status, detail string)
}
