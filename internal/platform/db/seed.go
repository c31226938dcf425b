package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/shift"
	"rosterd/internal/platform/config"
)

// Seed provisions the default settings row, the leave type catalogue, and a
// small demo org (one WFM, one TL, two agents with balances and a week of
// shifts). Every statement is idempotent, so seeding reruns safely at boot.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if _, err := pool.Exec(ctx, `
    INSERT INTO settings (id, auto_approve_on_tl, allow_leave_exceptions)
    VALUES (1, FALSE, TRUE)
    ON CONFLICT (id) DO NOTHING
  `); err != nil {
		return err
	}

	leaveTypes := []struct {
		code string
		name string
		rate float64
	}{
		{"annual", "Annual leave", 1.75},
		{"casual", "Casual leave", 0.5},
		{"medical", "Medical leave", 0.5},
	}
	for _, lt := range leaveTypes {
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_types (code, name, accrual_rate)
      VALUES ($1, $2, $3)
      ON CONFLICT (code) DO NOTHING
    `, lt.code, lt.name, lt.rate); err != nil {
			return err
		}
	}

	wfmPassword := cfg.SeedWFMPassword
	if wfmPassword == "" {
		wfmPassword = "ChangeMe123!"
	}

	users := []struct {
		email    string
		name     string
		role     string
		password string
	}{
		{cfg.SeedWFMEmail, "Workforce Manager", auth.RoleWorkforceManager, wfmPassword},
		{"tl@example.com", "Team Lead", auth.RoleTeamLead, wfmPassword},
		{"agent1@example.com", "Agent One", auth.RoleAgent, wfmPassword},
		{"agent2@example.com", "Agent Two", auth.RoleAgent, wfmPassword},
	}

	ids := make(map[string]string, len(users))
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		var id string
		if err := pool.QueryRow(ctx, `
      INSERT INTO users (email, display_name, role, password_hash)
      VALUES ($1, $2, $3, $4)
      ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
      RETURNING id
    `, u.email, u.name, u.role, string(hash)).Scan(&id); err != nil {
			return err
		}
		ids[u.email] = id
	}

	for _, email := range []string{"agent1@example.com", "agent2@example.com"} {
		for _, lt := range leaveTypes {
			if _, err := pool.Exec(ctx, `
        INSERT INTO leave_balances (user_id, leave_type, balance)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, leave_type) DO NOTHING
      `, ids[email], lt.code, 10.0); err != nil {
				return err
			}
		}
	}

	monday := startOfWeek(time.Now().UTC())
	rotation := []string{shift.TypeMorning, shift.TypeAfternoon, shift.TypeBetween, shift.TypeMorning, shift.TypeAfternoon}
	for offset, email := range map[int]string{0: "agent1@example.com", 1: "agent2@example.com"} {
		for day := 0; day < 5; day++ {
			shiftType := rotation[(day+offset)%len(rotation)]
			if _, err := pool.Exec(ctx, `
        INSERT INTO shifts (user_id, date, shift_type)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, date) DO NOTHING
      `, ids[email], monday.AddDate(0, 0, day), shiftType); err != nil {
				return err
			}
		}
	}

	slog.Info("seed applied", "users", len(users), "leaveTypes", len(leaveTypes))
	return nil
}

func startOfWeek(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
