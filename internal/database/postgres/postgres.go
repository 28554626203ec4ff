// Package postgres implements the event store on PostgreSQL using a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/database"
)

// Store is a database.Store backed by a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ database.Store = (*Store)(nil)

// Open parses url, applies pool limits and verifies the connection.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		slog.String("driver", "postgres"),
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)

	return &Store{pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.logger.Info("closing database connection pool")
	s.pool.Close()
	return nil
}

// Health pings the pool and runs a trivial query.
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := s.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query failed: %w", err)
	}
	return nil
}

// Migrate applies pending migrations in one transaction and returns the
// number applied.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	s.logger.Info("running database migrations")

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if committed

	_, err = tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("create schema_migrations table: %w", err)
	}

	rows, err := tx.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return 0, fmt.Errorf("query applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("scan migration versions: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	count := 0
	for version := 1; version <= len(migrationsSQL); version++ {
		if applied[version] {
			continue
		}

		content, ok := migrationsSQL[version]
		if !ok {
			return count, fmt.Errorf("migration %d not found", version)
		}

		s.logger.Info("applying migration", slog.Int("version", version))

		if _, err := tx.Exec(ctx, content); err != nil {
			return count, fmt.Errorf("execute migration %d: %w", version, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return count, fmt.Errorf("record migration %d: %w", version, err)
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return count, fmt.Errorf("commit migrations: %w", err)
	}

	s.logger.Info("migrations complete",
		slog.Int("applied", count),
		slog.Int("total", len(migrationsSQL)),
	)
	return count, nil
}

var migrationsSQL = map[int]string{
	1: `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL CHECK (char_length(title) BETWEEN 1 AND 100),
    description TEXT CHECK (description IS NULL OR char_length(description) <= 1000),
    date TEXT NOT NULL CHECK (date ~ '^\d{4}-\d{2}-\d{2}$'),
    start_time TEXT,
    duration_minutes INTEGER CHECK (duration_minutes IS NULL OR duration_minutes >= 0),
    external_id TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
`,
	2: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_external_id ON events(external_id);
`,
}

const eventColumns = `id, title, description, date, start_time, duration_minutes,
	external_id, created_at, updated_at`

func scanEvent(row pgx.Row) (*database.Event, error) {
	var e database.Event
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Date,
		&e.StartTime,
		&e.DurationMinutes,
		&e.ExternalID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]database.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []database.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// AddEvent validates and inserts e, setting its ID and timestamps.
func (s *Store) AddEvent(ctx context.Context, e *database.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (title, description, date, start_time, duration_minutes, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes, e.ExternalID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external id %q: %w", *e.ExternalID, database.ErrDuplicate)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// UpdateEvent replaces the editable fields of e.
func (s *Store) UpdateEvent(ctx context.Context, e *database.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	err := s.pool.QueryRow(ctx, `
		UPDATE events
		SET title = $1, description = $2, date = $3, start_time = $4,
			duration_minutes = $5, external_id = $6, updated_at = now()
		WHERE id = $7
		RETURNING created_at, updated_at
	`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes, e.ExternalID, e.ID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("external id %q: %w", *e.ExternalID, database.ErrDuplicate)
		}
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event by ID.
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id int64) (*database.Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

// GetEventsForMonth returns every event in cd.
func (s *Store) GetEventsForMonth(ctx context.Context, cd calendar.CalendarDate) ([]database.Event, error) {
	first, last := calendar.MonthRange(cd)
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE date >= $1 AND date <= $2
		ORDER BY date, COALESCE(start_time, ''), id
	`, first, last)
}

// GetEventsForDay returns the events on a YYYY-MM-DD date.
func (s *Store) GetEventsForDay(ctx context.Context, date string) ([]database.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE date = $1
		ORDER BY COALESCE(start_time, ''), id
	`, date)
}

// FindEventByExternalID returns nil, nil when no event matches.
func (s *Store) FindEventByExternalID(ctx context.Context, externalID string) (*database.Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		"SELECT "+eventColumns+" FROM events WHERE external_id = $1", externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query event by external id: %w", err)
	}
	return e, nil
}

// UpsertExternalEvent inserts e or updates the row holding its external
// ID. xmax is zero only for freshly inserted rows.
func (s *Store) UpsertExternalEvent(ctx context.Context, e *database.Event) (bool, error) {
	if e.ExternalID == nil || *e.ExternalID == "" {
		return false, fmt.Errorf("%w: external_id is required", database.ErrInvalidEvent)
	}
	if err := e.Validate(); err != nil {
		return false, err
	}

	var created bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (title, description, date, start_time, duration_minutes, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE
		SET title = EXCLUDED.title,
			description = EXCLUDED.description,
			date = EXCLUDED.date,
			start_time = EXCLUDED.start_time,
			duration_minutes = EXCLUDED.duration_minutes,
			updated_at = now()
		RETURNING id, created_at, updated_at, (xmax = 0)
	`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes, e.ExternalID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert external event: %w", err)
	}
	return created, nil
}

// DeleteMissingExternalEvents deletes imported events under prefix whose
// external ID is not in keep.
func (s *Store) DeleteMissingExternalEvents(ctx context.Context, prefix string, keep []string) (int64, error) {
	if keep == nil {
		// A nil slice encodes as NULL, and NOT (x = ANY(NULL)) matches nothing.
		keep = []string{}
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM events
		WHERE external_id IS NOT NULL
			AND left(external_id, char_length($1)) = $1
			AND NOT (external_id = ANY($2))
	`, prefix, keep)
	if err != nil {
		return 0, fmt.Errorf("delete missing external events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAllExternalEvents removes every imported event.
func (s *Store) DeleteAllExternalEvents(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM events WHERE external_id IS NOT NULL")
	if err != nil {
		return 0, fmt.Errorf("delete external events: %w", err)
	}
	return tag.RowsAffected(), nil
}
