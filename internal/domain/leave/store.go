package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rosterd/internal/domain/workflow"
	"rosterd/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

const requestColumns = `id, user_id, leave_type, start_date, end_date, days, status, tl_approved_at, wfm_approved_at, notes, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.UserID, &r.LeaveType, &r.StartDate, &r.EndDate, &r.Days,
		&r.Status, &r.TLApprovedAt, &r.WFMApprovedAt, &r.Notes, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrRequestNotFound
	}
	if err != nil {
		return Request{}, err
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	return scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, id))
}

func (s *Store) Insert(ctx context.Context, r Request) (Request, error) {
	return scanRequest(s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (user_id, leave_type, start_date, end_date, days, status, notes)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING `+requestColumns+`
  `, r.UserID, r.LeaveType, r.StartDate, r.EndDate, r.Days, r.Status, r.Notes))
}

// Balance returns the (user, leave type) balance and whether the row exists.
func (s *Store) Balance(ctx context.Context, userID, leaveType string) (float64, bool, error) {
	var balance float64
	err := s.DB.QueryRow(ctx, `
    SELECT balance
    FROM leave_balances
    WHERE user_id = $1 AND leave_type = $2
  `, userID, leaveType).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

// FirstOverlapping finds any of the user's blocking requests whose inclusive
// date range intersects [start, end], skipping excludeID when re-validating an
// edit. Only approved and pending requests block; denied and rejected do not.
func (s *Store) FirstOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) (string, workflow.Status, bool, error) {
	var id string
	var status workflow.Status
	err := s.DB.QueryRow(ctx, `
    SELECT id, status
    FROM leave_requests
    WHERE user_id = $1
      AND status IN ($2, $3, $4)
      AND start_date <= $5
      AND end_date >= $6
      AND ($7 = '' OR id::text <> $7)
    ORDER BY created_at
    LIMIT 1
  `, userID, workflow.StatusApproved, workflow.StatusPendingTL, workflow.StatusPendingWFM,
		end, start, excludeID).Scan(&id, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return id, status, true, nil
}

func (s *Store) List(ctx context.Context, userID string, statuses []workflow.Status, limit, offset int) ([]Request, error) {
	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests
    WHERE ($1 = '' OR user_id::text = $1)
  `
	args := []any{userID}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, st := range statuses {
			values[i] = string(st)
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args)+1)
		args = append(args, values)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Transition applies the state machine decision through a single conditional
// update keyed on (id, expected status). Zero rows affected means another
// transition won the race; the caller gets a ConcurrencyConflictError carrying
// the status that actually won. When deduct is set (final approval), the
// balance decrement commits in the same transaction as the status change.
func (s *Store) Transition(ctx context.Context, req Request, expected workflow.Status, d workflow.Decision, deduct bool) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $1,
        tl_approved_at = CASE WHEN $2 THEN now() ELSE tl_approved_at END,
        wfm_approved_at = CASE WHEN $3 THEN now() ELSE wfm_approved_at END
    WHERE id = $4 AND status = $5
  `, d.To, d.SetTLApproved, d.SetWFMApproved, req.ID, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var actual workflow.Status
		err := tx.QueryRow(ctx, "SELECT status FROM leave_requests WHERE id = $1", req.ID).Scan(&actual)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		return &workflow.ConcurrencyConflictError{Expected: expected, Actual: actual}
	}

	if deduct {
		if _, err := tx.Exec(ctx, `
      UPDATE leave_balances
      SET balance = balance - $1, updated_at = now()
      WHERE user_id = $2 AND leave_type = $3
    `, req.Days, req.UserID, req.LeaveType); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) Balances(ctx context.Context, userID string) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT user_id, leave_type, balance, updated_at
    FROM leave_balances
    WHERE user_id = $1
    ORDER BY leave_type
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.UserID, &b.LeaveType, &b.Balance, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// AdjustBalance applies a manual WFM correction and logs it. The upsert is a
// single statement so concurrent adjustments serialize per (user, leave type)
// at the row level.
func (s *Store) AdjustBalance(ctx context.Context, userID, leaveType string, amount float64, reason, actorID string) error {
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (user_id, leave_type, balance)
    VALUES ($1, $2, $3)
    ON CONFLICT (user_id, leave_type)
    DO UPDATE SET balance = leave_balances.balance + EXCLUDED.balance, updated_at = now()
  `, userID, leaveType, amount); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO balance_adjustments (user_id, leave_type, amount, reason, created_by)
    VALUES ($1, $2, $3, $4, $5)
  `, userID, leaveType, amount, reason, actorID)
	return err
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT code, name, accrual_rate
    FROM leave_types
    ORDER BY code
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveType
	for rows.Next() {
		var t LeaveType
		if err := rows.Scan(&t.Code, &t.Name, &t.AccrualRate); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
