package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/zapponejosh/calendar-api/internal/calendar"
)

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05", // SQLite datetime('now')
		"2006-01-02T15:04:05.999999",
	} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}

	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NullString converts a sql.NullString to a *string.
func NullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

type rowScanner interface {
	Scan(dest ...any) error
}

const eventColumns = `id, title, description, date, start_time, duration_minutes,
	external_id, created_at, updated_at`

func scanEvent(row rowScanner) (*Event, error) {
	var e Event
	var description, startTime, externalID, createdAt, updatedAt sql.NullString
	var duration sql.NullInt64

	err := row.Scan(
		&e.ID,
		&e.Title,
		&description,
		&e.Date,
		&startTime,
		&duration,
		&externalID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Description = NullString(description)
	e.StartTime = NullString(startTime)
	e.DurationMinutes = nullInt(duration)
	e.ExternalID = NullString(externalID)
	if t := parseTimestamp(createdAt); t != nil {
		e.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAt); t != nil {
		e.UpdatedAt = *t
	}

	return &e, nil
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
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

// =============================================================================
// Event Queries
// =============================================================================

// AddEvent validates and inserts e, setting its ID and timestamps.
func (db *DB) AddEvent(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO events (title, description, date, start_time, duration_minutes,
			external_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes,
		e.ExternalID, formatTimestamp(now), formatTimestamp(now))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external id %q: %w", *e.ExternalID, ErrDuplicate)
		}
		return fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get event id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// UpdateEvent replaces the editable fields of e.
// Returns ErrNotFound if the event doesn't exist.
func (db *DB) UpdateEvent(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, date = ?, start_time = ?,
			duration_minutes = ?, external_id = ?, updated_at = ?
		WHERE id = ?
	`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes,
		e.ExternalID, formatTimestamp(now), e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external id %q: %w", *e.ExternalID, ErrDuplicate)
		}
		return fmt.Errorf("update event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	e.UpdatedAt = now
	return nil
}

// DeleteEvent removes an event by ID.
// Returns ErrNotFound if the event doesn't exist.
func (db *DB) DeleteEvent(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetEvent retrieves an event by ID.
// Returns ErrNotFound if the event doesn't exist.
func (db *DB) GetEvent(ctx context.Context, id int64) (*Event, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ?", id)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

// GetEventsForMonth returns every event in cd. Returns an empty slice
// if there are none.
func (db *DB) GetEventsForMonth(ctx context.Context, cd calendar.CalendarDate) ([]Event, error) {
	first, last := calendar.MonthRange(cd)
	return db.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE date >= ? AND date <= ?
		ORDER BY date, COALESCE(start_time, ''), id
	`, first, last)
}

// GetEventsForDay returns the events on a YYYY-MM-DD date.
func (db *DB) GetEventsForDay(ctx context.Context, date string) ([]Event, error) {
	return db.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE date = ?
		ORDER BY COALESCE(start_time, ''), id
	`, date)
}

// FindEventByExternalID returns the imported event with the given
// external ID, or nil if there is none.
func (db *DB) FindEventByExternalID(ctx context.Context, externalID string) (*Event, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE external_id = ?", externalID)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query event by external id: %w", err)
	}
	return e, nil
}

// UpsertExternalEvent inserts e, or updates the event that already has
// its external ID. The stored ID and creation time are kept on update.
func (db *DB) UpsertExternalEvent(ctx context.Context, e *Event) (bool, error) {
	if e.ExternalID == nil || *e.ExternalID == "" {
		return false, fmt.Errorf("%w: external_id is required", ErrInvalidEvent)
	}
	if err := e.Validate(); err != nil {
		return false, err
	}

	created := false
	err := db.WithTx(ctx, func(tx *Tx) error {
		now := time.Now().UTC()

		var id int64
		var createdAt sql.NullString
		err := tx.QueryRowContext(ctx,
			"SELECT id, created_at FROM events WHERE external_id = ?", *e.ExternalID,
		).Scan(&id, &createdAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO events (title, description, date, start_time, duration_minutes,
					external_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes,
				e.ExternalID, formatTimestamp(now), formatTimestamp(now))
			if err != nil {
				return fmt.Errorf("insert external event: %w", err)
			}
			if e.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("get event id: %w", err)
			}
			e.CreatedAt = now
			created = true

		case err != nil:
			return fmt.Errorf("query external event: %w", err)

		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE events
				SET title = ?, description = ?, date = ?, start_time = ?,
					duration_minutes = ?, updated_at = ?
				WHERE id = ?
			`, e.Title, e.Description, e.Date, e.StartTime, e.DurationMinutes,
				formatTimestamp(now), id)
			if err != nil {
				return fmt.Errorf("update external event: %w", err)
			}
			e.ID = id
			if t := parseTimestamp(createdAt); t != nil {
				e.CreatedAt = *t
			}
		}

		e.UpdatedAt = now
		return nil
	})

	return created, err
}

// DeleteMissingExternalEvents deletes the imported events whose external
// ID starts with prefix but is not listed in keep.
func (db *DB) DeleteMissingExternalEvents(ctx context.Context, prefix string, keep []string) (int64, error) {
	var deleted int64

	err := db.WithTx(ctx, func(tx *Tx) error {
		// substr avoids LIKE, whose wildcards include '_'.
		rows, err := tx.QueryContext(ctx, `
			SELECT id, external_id FROM events
			WHERE external_id IS NOT NULL AND substr(external_id, 1, length(?)) = ?
		`, prefix, prefix)
		if err != nil {
			return fmt.Errorf("query feed events: %w", err)
		}

		stored := make(map[string]int64)
		for rows.Next() {
			var id int64
			var ext string
			if err := rows.Scan(&id, &ext); err != nil {
				rows.Close()
				return fmt.Errorf("scan feed event: %w", err)
			}
			stored[ext] = id
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate feed events: %w", err)
		}

		for _, id := range Missing(stored, keep) {
			if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id); err != nil {
				return fmt.Errorf("delete event %d: %w", id, err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// DeleteAllExternalEvents removes every imported event and leaves
// manually created ones alone.
func (db *DB) DeleteAllExternalEvents(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM events WHERE external_id IS NOT NULL")
	if err != nil {
		return 0, fmt.Errorf("delete external events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}
