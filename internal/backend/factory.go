// Package backend selects and builds the configured data store.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cashplet/internal/config"
	"cashplet/internal/memory"
	"cashplet/internal/storage"
	"cashplet/internal/storage/postgres"
	"cashplet/internal/store"
)

type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
	Memory   Type = "memory"
)

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres, Memory:
		return true
	default:
		return false
	}
}

// CleanupFunc releases the store's resources. It may be nil.
type CleanupFunc func() error

type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Open builds the store named by cfg.DataBackend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch Type(cfg.DataBackend) {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case Postgres:
		repo, err := postgres.NewRepository(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		logger.Info("Initialized Postgres backend")
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case Memory:
		logger.Info("Initialized in-memory backend")
		return &Result{Store: memory.New(), Cleanup: nil}, nil

	default:
		return nil, fmt.Errorf("invalid data backend: %s", cfg.DataBackend)
	}
}
