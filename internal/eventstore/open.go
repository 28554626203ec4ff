// Package eventstore opens the event store selected by configuration.
package eventstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
	"github.com/zapponejosh/calendar-api/internal/database/postgres"
)

// Open connects to the backend named by cfg.DatabaseDriver. It does not
// run migrations.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite, "":
		db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// OpenAndMigrate opens the store and applies pending migrations.
func OpenAndMigrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	store, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate event store: %w", err)
	}
	return store, nil
}
