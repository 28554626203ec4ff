package eventstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenAndMigrate_SQLite(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabasePath:   filepath.Join(t.TempDir(), "nested", "cal.db"),
	}

	store, err := OpenAndMigrate(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	defer store.Close()

	if _, ok := store.(*database.DB); !ok {
		t.Errorf("store type = %T, want *database.DB", store)
	}
	if err := store.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "mysql"}
	if _, err := Open(context.Background(), cfg, quietLogger()); err == nil {
		t.Error("Open() error = nil, want error")
	}
}
