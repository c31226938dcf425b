package leave

import (
	"context"
	"log/slog"
	"time"

	"rosterd/internal/platform/querier"
)

type AccrualSummary struct {
	Period           time.Time `json:"period"`
	TypesProcessed   int       `json:"typesProcessed"`
	BalancesCredited int       `json:"balancesCredited"`
	AlreadyApplied   bool      `json:"alreadyApplied"`
}

// ApplyMonthlyAccrual credits every user's balance with each leave type's
// monthly accrual rate, once per calendar month. The period is claimed by
// inserting the accrual_runs row inside the same transaction as the credits,
// so the primary key serializes concurrent firings: exactly one caller wins
// the insert and commits, every other caller sees zero rows affected and
// reports AlreadyApplied. The scheduler and the manual trigger may therefore
// race freely.
func ApplyMonthlyAccrual(ctx context.Context, db querier.TxBeginner, now time.Time) (AccrualSummary, error) {
	period := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	summary := AccrualSummary{Period: period}

	types, err := accruingTypes(ctx, db)
	if err != nil {
		return summary, err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return summary, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    INSERT INTO accrual_runs (period)
    VALUES ($1)
    ON CONFLICT (period) DO NOTHING
  `, period)
	if err != nil {
		return summary, err
	}
	if tag.RowsAffected() == 0 {
		summary.AlreadyApplied = true
		return summary, nil
	}

	for _, t := range types {
		tag, err := tx.Exec(ctx, `
      INSERT INTO leave_balances (user_id, leave_type, balance)
      SELECT id, $1, $2 FROM users
      ON CONFLICT (user_id, leave_type)
      DO UPDATE SET balance = leave_balances.balance + EXCLUDED.balance, updated_at = now()
    `, t.Code, t.AccrualRate)
		if err != nil {
			return summary, err
		}
		summary.TypesProcessed++
		summary.BalancesCredited += int(tag.RowsAffected())
	}

	if _, err := tx.Exec(ctx, `
    UPDATE accrual_runs
    SET types_processed = $2, balances_credited = $3
    WHERE period = $1
  `, period, summary.TypesProcessed, summary.BalancesCredited); err != nil {
		return summary, err
	}

	if err := tx.Commit(ctx); err != nil {
		return summary, err
	}

	slog.Info("monthly accrual applied",
		"period", period.Format("2006-01"),
		"types", summary.TypesProcessed,
		"credited", summary.BalancesCredited)
	return summary, nil
}

func accruingTypes(ctx context.Context, db querier.Querier) ([]LeaveType, error) {
	rows, err := db.Query(ctx, `
    SELECT code, name, accrual_rate
    FROM leave_types
    WHERE accrual_rate > 0
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
