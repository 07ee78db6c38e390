package storage

import (
	"context"
	"fmt"

	"trust-checker/config"
	"trust-checker/utils"
)

// Open builds the store selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN(), logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.StoreBackend)
	}
}
