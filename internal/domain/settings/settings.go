package settings

import (
	"context"
	"time"

	"rosterd/internal/platform/querier"
)

// Settings are the process-wide approval flags. They are read per decision
// rather than cached, so a WFM toggling a flag takes effect immediately.
type Settings struct {
	AutoApproveOnTL      bool      `json:"autoApproveOnTl"`
	AllowLeaveExceptions bool      `json:"allowLeaveExceptions"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Provider is what the decision paths consume; satisfied by *Store.
type Provider interface {
	Get(ctx context.Context) (Settings, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context) (Settings, error) {
	var st Settings
	err := s.DB.QueryRow(ctx, `
    SELECT auto_approve_on_tl, allow_leave_exceptions, updated_at
    FROM settings
    WHERE id = 1
  `).Scan(&st.AutoApproveOnTL, &st.AllowLeaveExceptions, &st.UpdatedAt)
	if err != nil {
		return Settings{}, err
	}
	return st, nil
}

func (s *Store) Update(ctx context.Context, st Settings) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE settings
    SET auto_approve_on_tl = $1, allow_leave_exceptions = $2, updated_at = now()
    WHERE id = 1
  `, st.AutoApproveOnTL, st.AllowLeaveExceptions)
	return err
}
