// Package cli holds the startup plumbing shared by the cashplet binaries.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cashplet/internal/config"
	applog "cashplet/internal/log"
)

// SetupLogger builds the component logger and installs it as the slog
// default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: component})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development; absence is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation
// failure so a misconfigured process never serves traffic.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
