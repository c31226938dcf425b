package shift

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"rosterd/internal/platform/querier"
)

var ErrShiftNotFound = errors.New("shift not found")

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context, id string) (Shift, error) {
	return s.scanOne(s.DB.QueryRow(ctx, `
    SELECT id, user_id, date, shift_type, swapped_with, updated_at
    FROM shifts
    WHERE id = $1
  `, id))
}

func (s *Store) ByUserDate(ctx context.Context, userID string, date time.Time) (Shift, error) {
	return s.scanOne(s.DB.QueryRow(ctx, `
    SELECT id, user_id, date, shift_type, swapped_with, updated_at
    FROM shifts
    WHERE user_id = $1 AND date = $2
  `, userID, date))
}

func (s *Store) scanOne(row pgx.Row) (Shift, error) {
	var sh Shift
	err := row.Scan(&sh.ID, &sh.UserID, &sh.Date, &sh.Type, &sh.SwappedWith, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, ErrShiftNotFound
	}
	if err != nil {
		return Shift{}, err
	}
	return sh, nil
}

// Range lists shifts in [from, to] inclusive, optionally for a single user.
func (s *Store) Range(ctx context.Context, from, to time.Time, userID string) ([]Shift, error) {
	query := `
    SELECT id, user_id, date, shift_type, swapped_with, updated_at
    FROM shifts
    WHERE date >= $1 AND date <= $2
  `
	args := []any{from, to}
	if userID != "" {
		query += " AND user_id = $3"
		args = append(args, userID)
	}
	query += " ORDER BY date, user_id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shift
	for rows.Next() {
		var sh Shift
		if err := rows.Scan(&sh.ID, &sh.UserID, &sh.Date, &sh.Type, &sh.SwappedWith, &sh.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, userID string, date time.Time, shiftType string) (Shift, error) {
	return s.scanOne(s.DB.QueryRow(ctx, `
    INSERT INTO shifts (user_id, date, shift_type)
    VALUES ($1, $2, $3)
    ON CONFLICT (user_id, date)
    DO UPDATE SET shift_type = EXCLUDED.shift_type, swapped_with = NULL, updated_at = now()
    RETURNING id, user_id, date, shift_type, swapped_with, updated_at
  `, userID, date, shiftType))
}

type UpsertRow struct {
	UserID string
	Date   time.Time
	Type   string
}

type ImportSummary struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// ImportRoster applies a parsed roster import in one transaction.
func (s *Store) ImportRoster(ctx context.Context, rows []UpsertRow) (ImportSummary, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return ImportSummary{}, err
	}
	defer tx.Rollback(ctx)

	summary, err := BulkUpsert(ctx, tx, rows)
	if err != nil {
		return summary, err
	}
	return summary, tx.Commit(ctx)
}

// BulkUpsert applies roster import rows with merge semantics: rows whose type
// is empty are skipped so blank cells leave existing shifts untouched.
func BulkUpsert(ctx context.Context, q querier.Querier, rows []UpsertRow) (ImportSummary, error) {
	var summary ImportSummary
	for _, row := range rows {
		if row.Type == "" {
			summary.Skipped++
			continue
		}
		if _, err := q.Exec(ctx, `
      INSERT INTO shifts (user_id, date, shift_type)
      VALUES ($1, $2, $3)
      ON CONFLICT (user_id, date)
      DO UPDATE SET shift_type = EXCLUDED.shift_type, swapped_with = NULL, updated_at = now()
    `, row.UserID, row.Date, row.Type); err != nil {
			return summary, err
		}
		summary.Applied++
	}
	return summary, nil
}
