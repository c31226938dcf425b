package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/comments"
	"rosterd/internal/domain/leave"
	"rosterd/internal/domain/settings"
	"rosterd/internal/domain/shift"
	"rosterd/internal/domain/swap"
	"rosterd/internal/platform/config"
	"rosterd/internal/platform/db"
	"rosterd/internal/platform/jobs"
	"rosterd/internal/platform/metrics"
	"rosterd/internal/transport/http/api"
	authhandler "rosterd/internal/transport/http/handlers/auth"
	leavehandler "rosterd/internal/transport/http/handlers/leave"
	settingshandler "rosterd/internal/transport/http/handlers/settings"
	shifthandler "rosterd/internal/transport/http/handlers/shift"
	swaphandler "rosterd/internal/transport/http/handlers/swap"
	"rosterd/internal/transport/http/middleware"
)

// App holds the wired application. Tests construct one against a throwaway
// database and drive Router directly; Run wraps it in an http.Server.
type App struct {
	Cfg       config.Config
	Pool      *pgxpool.Pool
	Router    chi.Router
	Jobs      *jobs.Service
	collector *metrics.Collector
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seeding: %w", err)
		}
	}

	settingsStore := settings.NewStore(pool)
	recorder := comments.NewRecorder(pool)
	authStore := auth.NewStore(pool)
	leaveStore := leave.NewStore(pool)
	swapStore := swap.NewStore(pool)
	shiftStore := shift.NewStore(pool)

	leaveService := leave.NewService(leaveStore, settingsStore, recorder)
	swapService := swap.NewService(swapStore, settingsStore, recorder)
	jobsService := jobs.New(pool, cfg)

	app := &App{
		Cfg:       cfg,
		Pool:      pool,
		Jobs:      jobsService,
		collector: metrics.New(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics(app.collector))
	}
	r.Use(middleware.Auth(cfg.JWTSecret))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	r.Get("/healthz", app.handleHealthz)
	r.Get("/readyz", app.handleReadyz)
	if cfg.MetricsEnabled {
		r.Get("/metrics", app.handleMetrics)
	}

	authHandler := authhandler.NewHandler(authStore, cfg.JWTSecret, cfg.TokenTTL)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)
		r.With(middleware.RequireAuth).Get("/users", authHandler.HandleListUsers)

		leavehandler.NewHandler(leaveService, recorder, jobsService).RegisterRoutes(r)
		swaphandler.NewHandler(swapService, recorder).RegisterRoutes(r)
		shifthandler.NewHandler(shiftStore).RegisterRoutes(r)
		settingshandler.NewHandler(settingsStore).RegisterRoutes(r)
	})

	app.Router = r
	return app, nil
}

func (a *App) Close() {
	a.Pool.Close()
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	api.Success(w, map[string]string{"status": "ok"}, middleware.GetRequestID(r.Context()))
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if err := a.Pool.Ping(r.Context()); err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", requestID)
		return
	}
	api.Success(w, map[string]string{"status": "ready"}, requestID)
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, a.collector.Snapshot(), middleware.GetRequestID(r.Context()))
}

// Run builds the app, starts the scheduler and the HTTP server, and blocks
// until SIGINT/SIGTERM, then drains within the configured shutdown timeout.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Jobs.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer app.Jobs.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: app.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
