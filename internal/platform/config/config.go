package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	TokenTTL        time.Duration
	Environment     string
	RunMigrations   bool
	MigrationsDir   string
	RunSeed         bool
	SeedWFMEmail    string
	SeedWFMPassword string
	MaxBodyBytes    int64
	AccrualSchedule string
	MetricsEnabled  bool
	ShutdownTimeout time.Duration
}

func Load() Config {
	return Config{
		Addr:            getEnv("APP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getEnvDuration("TOKEN_TTL", 12*time.Hour),
		Environment:     getEnv("APP_ENV", "development"),
		RunMigrations:   getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
		RunSeed:         getEnvBool("RUN_SEED", true),
		SeedWFMEmail:    getEnv("SEED_WFM_EMAIL", "wfm@example.com"),
		SeedWFMPassword: getEnv("SEED_WFM_PASSWORD", ""),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		AccrualSchedule: getEnv("ACCRUAL_SCHEDULE", "0 2 1 * *"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedWFMPassword) == "" {
			return fmt.Errorf("SEED_WFM_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}
