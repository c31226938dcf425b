package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"rosterd/internal/app/server"
	"rosterd/internal/platform/config"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := server.Run(context.Background(), cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
