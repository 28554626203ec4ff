package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zapponejosh/calendar-api/internal/calendar"
)

// Field limits for events.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// ErrInvalidEvent is returned when an event fails validation.
var ErrInvalidEvent = errors.New("invalid event")

var startTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Event is a single entry on the calendar. Events belong to one day;
// Date is always YYYY-MM-DD with a 1-based month.
type Event struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`      // nullable
	Date            string    `json:"date"`             // YYYY-MM-DD
	StartTime       *string   `json:"start_time"`       // nullable, HH:MM
	DurationMinutes *int      `json:"duration_minutes"` // nullable
	ExternalID      *string   `json:"external_id"`      // set for imported events
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate normalizes the title and checks every field. Errors wrap
// ErrInvalidEvent.
func (e *Event) Validate() error {
	var errs []error

	e.Title = strings.TrimSpace(e.Title)
	switch n := utf8.RuneCountInString(e.Title); {
	case n == 0:
		errs = append(errs, errors.New("title is required"))
	case n > MaxTitleLength:
		errs = append(errs, fmt.Errorf("title must be at most %d characters", MaxTitleLength))
	}

	if e.Description != nil && utf8.RuneCountInString(*e.Description) > MaxDescriptionLength {
		errs = append(errs, fmt.Errorf("description must be at most %d characters", MaxDescriptionLength))
	}

	if _, _, err := calendar.ParseDate(e.Date); err != nil {
		errs = append(errs, err)
	}

	if e.StartTime != nil && !startTimeRe.MatchString(*e.StartTime) {
		errs = append(errs, fmt.Errorf("start_time %q must be HH:MM", *e.StartTime))
	}

	if e.DurationMinutes != nil && *e.DurationMinutes < 0 {
		errs = append(errs, errors.New("duration_minutes must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, errors.Join(errs...))
	}
	return nil
}

// Day returns the month and day the event falls on.
func (e *Event) Day() (calendar.CalendarDate, int, error) {
	return calendar.ParseDate(e.Date)
}

// Imported reports whether the event came from a feed import.
func (e *Event) Imported() bool {
	return e.ExternalID != nil
}

// Store is the persistence contract shared by the SQLite and Postgres
// backends.
type Store interface {
	// AddEvent inserts e and sets its ID and timestamps.
	AddEvent(ctx context.Context, e *Event) error
	// UpdateEvent replaces the stored fields of e. Returns ErrNotFound
	// if no event has e.ID.
	UpdateEvent(ctx context.Context, e *Event) error
	DeleteEvent(ctx context.Context, id int64) error
	GetEvent(ctx context.Context, id int64) (*Event, error)

	// GetEventsForMonth returns the events of cd ordered by date and start time.
	GetEventsForMonth(ctx context.Context, cd calendar.CalendarDate) ([]Event, error)
	GetEventsForDay(ctx context.Context, date string) ([]Event, error)

	// FindEventByExternalID returns nil, nil when no event matches.
	FindEventByExternalID(ctx context.Context, externalID string) (*Event, error)
	// UpsertExternalEvent inserts or updates by ExternalID, which must be set.
	UpsertExternalEvent(ctx context.Context, e *Event) (created bool, err error)
	// DeleteMissingExternalEvents deletes events whose external ID starts
	// with prefix and is not in keep.
	DeleteMissingExternalEvents(ctx context.Context, prefix string, keep []string) (int64, error)
	DeleteAllExternalEvents(ctx context.Context) (int64, error)

	Health(ctx context.Context) error
	Migrate(ctx context.Context) (int, error)
	Close() error
}

// Missing returns the IDs from stored that are not in keep.
func Missing(stored map[string]int64, keep []string) []int64 {
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	var ids []int64
	for ext, id := range stored {
		if !kept[ext] {
			ids = append(ids, id)
		}
	}
	return ids
}
