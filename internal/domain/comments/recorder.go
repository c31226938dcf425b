package comments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rosterd/internal/domain/workflow"
	"rosterd/internal/platform/querier"
)

type Comment struct {
	ID        string        `json:"id"`
	Kind      workflow.Kind `json:"kind"`
	RequestID string        `json:"requestId"`
	AuthorID  *string       `json:"authorId,omitempty"`
	Body      string        `json:"body"`
	IsSystem  bool          `json:"isSystem"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Recorder struct {
	DB querier.Querier
}

func NewRecorder(db querier.Querier) *Recorder {
	return &Recorder{DB: db}
}

// RecordTransition appends the system note for one status change. Best-effort:
// a failed insert is logged and never propagated, so an audit outage cannot
// block or roll back the transition it describes.
func (r *Recorder) RecordTransition(ctx context.Context, kind workflow.Kind, requestID, actorName string, from, to workflow.Status) {
	body := fmt.Sprintf("status changed from %s to %s by %s", from, to, actorName)
	r.recordSystem(ctx, kind, requestID, body)
}

// RecordCreation appends the system note for a newly created request,
// including the auto-denial note when the validator rejects the balance.
func (r *Recorder) RecordCreation(ctx context.Context, kind workflow.Kind, requestID, actorName string, status workflow.Status, detail string) {
	body := fmt.Sprintf("request created with status %s by %s", status, actorName)
	if detail != "" {
		body += ": " + detail
	}
	r.recordSystem(ctx, kind, requestID, body)
}

func (r *Recorder) recordSystem(ctx context.Context, kind workflow.Kind, requestID, body string) {
	_, err := r.DB.Exec(ctx, `
    INSERT INTO request_comments (request_kind, request_id, author_id, body, is_system)
    VALUES ($1, $2, NULL, $3, TRUE)
  `, kind, requestID, body)
	if err != nil {
		slog.Warn("system comment write failed", "kind", kind, "requestId", requestID, "err", err)
	}
}

// Add stores a user-authored comment. Unlike system notes, failures here are
// surfaced to the caller.
func (r *Recorder) Add(ctx context.Context, kind workflow.Kind, requestID, authorID, body string) (Comment, error) {
	var c Comment
	c.Kind = kind
	c.RequestID = requestID
	c.AuthorID = &authorID
	c.Body = body
	err := r.DB.QueryRow(ctx, `
    INSERT INTO request_comments (request_kind, request_id, author_id, body, is_system)
    VALUES ($1, $2, $3, $4, FALSE)
    RETURNING id, created_at
  `, kind, requestID, authorID, body).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (r *Recorder) List(ctx context.Context, kind workflow.Kind, requestID string) ([]Comment, error) {
	rows, err := r.DB.Query(ctx, `
    SELECT id, request_kind, request_id, author_id, body, is_system, created_at
    FROM request_comments
    WHERE request_kind = $1 AND request_id = $2
    ORDER BY created_at
  `, kind, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Kind, &c.RequestID, &c.AuthorID, &c.Body, &c.IsSystem, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
