package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"rosterd/internal/domain/leave"
	"rosterd/internal/platform/config"
)

// Service runs the scheduled background work: the monthly balance accrual.
// The accrual itself is idempotent per period, so an overlapping or repeated
// firing cannot double-credit.
type Service struct {
	DB   *pgxpool.Pool
	Cfg  config.Config
	cron *cron.Cron
}

func New(db *pgxpool.Pool, cfg config.Config) *Service {
	return &Service{DB: db, Cfg: cfg, cron: cron.New()}
}

func (s *Service) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.Cfg.AccrualSchedule, func() {
		s.runAccrual(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// RunAccrualNow is the manual trigger behind the WFM endpoint.
func (s *Service) RunAccrualNow(ctx context.Context) (leave.AccrualSummary, error) {
	return leave.ApplyMonthlyAccrual(ctx, s.DB, timeNow())
}

func (s *Service) runAccrual(ctx context.Context) {
	summary, err := leave.ApplyMonthlyAccrual(ctx, s.DB, timeNow())
	if err != nil {
		slog.Error("scheduled accrual failed", "err", err)
		return
	}
	if summary.AlreadyApplied {
		slog.Debug("scheduled accrual skipped", "period", summary.Period.Format("2006-01"))
	}
}
