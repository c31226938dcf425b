package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rosterd/internal/domain/shift"
	"rosterd/internal/domain/workflow"
	"rosterd/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

const requestColumns = `id, requester_id, target_id, requester_shift_id, target_shift_id,
    requester_date, target_date, requester_type, target_type,
    COALESCE(requester_cross_type, ''), COALESCE(target_cross_type, ''),
    status, tl_approved_at, wfm_approved_at, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.RequesterID, &r.TargetID, &r.RequesterShiftID, &r.TargetShiftID,
		&r.RequesterDate, &r.TargetDate, &r.RequesterType, &r.TargetType,
		&r.RequesterCrossType, &r.TargetCrossType,
		&r.Status, &r.TLApprovedAt, &r.WFMApprovedAt, &r.CreatedAt)
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
    FROM swap_requests
    WHERE id = $1
  `, id))
}

// Insert writes the request with its snapshot fields. The snapshot columns are
// written here and nowhere else.
func (s *Store) Insert(ctx context.Context, r Request) (Request, error) {
	return scanRequest(s.DB.QueryRow(ctx, `
    INSERT INTO swap_requests (
      requester_id, target_id, requester_shift_id, target_shift_id,
      requester_date, target_date, requester_type, target_type,
      requester_cross_type, target_cross_type, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)
    RETURNING `+requestColumns+`
  `, r.RequesterID, r.TargetID, r.RequesterShiftID, r.TargetShiftID,
		r.RequesterDate, r.TargetDate, r.RequesterType, r.TargetType,
		r.RequesterCrossType, r.TargetCrossType, r.Status))
}

// List returns requests where the user is requester or target; empty userID
// lists all.
func (s *Store) List(ctx context.Context, userID string, statuses []workflow.Status, limit, offset int) ([]Request, error) {
	query := `
    SELECT ` + requestColumns + `
    FROM swap_requests
    WHERE ($1 = '' OR requester_id::text = $1 OR target_id::text = $1)
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

func (s *Store) ShiftByID(ctx context.Context, id string) (shift.Shift, error) {
	var sh shift.Shift
	err := s.DB.QueryRow(ctx, `
    SELECT id, user_id, date, shift_type, swapped_with, updated_at
    FROM shifts
    WHERE id = $1
  `, id).Scan(&sh.ID, &sh.UserID, &sh.Date, &sh.Type, &sh.SwappedWith, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return shift.Shift{}, shift.ErrShiftNotFound
	}
	if err != nil {
		return shift.Shift{}, err
	}
	return sh, nil
}

// ShiftTypeByUserDate resolves the cross-date snapshots at creation time.
func (s *Store) ShiftTypeByUserDate(ctx context.Context, userID string, date time.Time) (string, bool, error) {
	var shiftType string
	err := s.DB.QueryRow(ctx, `
    SELECT shift_type FROM shifts WHERE user_id = $1 AND date = $2
  `, userID, date).Scan(&shiftType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return shiftType, true, nil
}

// Transition applies the state machine decision through the conditional update
// keyed on (id, expected status). When the decision lands on approved, the
// shift exchange runs inside the same transaction: either the status advance
// and every shift write commit together, or the rollback leaves both the
// request and the roster exactly as before.
func (s *Store) Transition(ctx context.Context, req Request, expected workflow.Status, d workflow.Decision) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE swap_requests
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
		err := tx.QueryRow(ctx, "SELECT status FROM swap_requests WHERE id = $1", req.ID).Scan(&actual)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		return &workflow.ConcurrencyConflictError{Expected: expected, Actual: actual}
	}

	if d.To == workflow.StatusApproved {
		if err := executeExchange(ctx, tx, req); err != nil {
			return &ExecutionError{RequestID: req.ID, Err: err}
		}
	}

	return tx.Commit(ctx)
}

// executeExchange applies the snapshot plan to the roster. The own-date rows
// are locked first so no other writer touches them mid-exchange.
func executeExchange(ctx context.Context, tx pgx.Tx, req Request) error {
	var requesterCurrent, targetCurrent string
	err := tx.QueryRow(ctx, `
    SELECT shift_type FROM shifts WHERE user_id = $1 AND date = $2 FOR UPDATE
  `, req.RequesterID, req.RequesterDate).Scan(&requesterCurrent)
	if err != nil {
		return fmt.Errorf("requester shift on %s: %w", req.RequesterDate.Format("2006-01-02"), err)
	}
	err = tx.QueryRow(ctx, `
    SELECT shift_type FROM shifts WHERE user_id = $1 AND date = $2 FOR UPDATE
  `, req.TargetID, req.TargetDate).Scan(&targetCurrent)
	if err != nil {
		return fmt.Errorf("target shift on %s: %w", req.TargetDate.Format("2006-01-02"), err)
	}

	// Re-applying an already-executed exchange is a no-op. When the two
	// original types are identical the check is vacuous and the writes below
	// run anyway; they are value-idempotent.
	if req.RequesterType != req.TargetType && Applied(req, requesterCurrent, targetCurrent) {
		return nil
	}

	for _, w := range ExchangeWrites(req) {
		tag, err := tx.Exec(ctx, `
      UPDATE shifts
      SET shift_type = $1, swapped_with = $2, updated_at = now()
      WHERE user_id = $3 AND date = $4
    `, w.Type, w.SwappedWith, w.UserID, w.Date)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("shift row missing for user %s on %s", w.UserID, w.Date.Format("2006-01-02"))
		}
	}
	return nil
}
