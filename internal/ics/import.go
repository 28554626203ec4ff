package ics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
)

// untitled replaces an empty SUMMARY, since stored events need a title.
const untitled = "(untitled)"

// Result summarizes one feed import.
type Result struct {
	FeedID      string   `json:"feed_id"`
	Parsed      int      `json:"parsed"`
	Occurrences int      `json:"occurrences"`
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	Deleted     int64    `json:"deleted"`
	Skipped     int      `json:"skipped"`
	Truncated   []string `json:"truncated,omitempty"`
}

// Importer writes feed occurrences into a Store.
type Importer struct {
	store    database.Store
	logger   *slog.Logger
	location *time.Location
}

// NewImporter returns an Importer that files timed occurrences under
// their date in loc. A nil loc means time.Local.
func NewImporter(store database.Store, loc *time.Location, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Importer{store: store, logger: logger, location: loc}
}

// ExternalIDPrefix is the prefix shared by every event imported from feedID.
func ExternalIDPrefix(feedID string) string {
	return feedID + ":"
}

// ExternalID identifies one occurrence of a feed event by its date.
func ExternalID(feedID, uid, date string) string {
	return ExternalIDPrefix(feedID) + uid + ":" + date
}

// Import parses body, expands it over [from, to] and upserts every
// occurrence. Previously imported events of the feed that are no longer
// produced are deleted afterwards, so a failed parse never removes data.
func (im *Importer) Import(ctx context.Context, feed config.Feed, body []byte, from, to time.Time) (Result, error) {
	res := Result{FeedID: feed.ID}
	if !config.ValidFeedID(feed.ID) {
		return res, fmt.Errorf("%w: bad feed id %q", ErrInvalidFeed, feed.ID)
	}

	parsed, err := Parse(feed.ID, body, im.logger)
	if err != nil {
		return res, fmt.Errorf("feed %s: %w", feed.ID, err)
	}
	res.Parsed = len(parsed)

	expanded, err := Expand(parsed, ExpandConfig{RangeStart: from, RangeEnd: to})
	if err != nil {
		return res, fmt.Errorf("feed %s: %w", feed.ID, err)
	}
	res.Occurrences = len(expanded.Occurrences)
	res.Truncated = expanded.Truncated
	res.Skipped += len(expanded.Invalid)

	keep := make([]string, 0, len(expanded.Occurrences))
	seen := make(map[string]bool, len(expanded.Occurrences))

	for _, occ := range expanded.Occurrences {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ev := im.toEvent(occ)
		ext := *ev.ExternalID
		if seen[ext] {
			// Several instances on one day share an external ID; the first wins.
			res.Skipped++
			continue
		}
		seen[ext] = true

		created, err := im.store.UpsertExternalEvent(ctx, &ev)
		if err != nil {
			if errors.Is(err, database.ErrInvalidEvent) {
				im.logger.Warn("skipping invalid occurrence", "feed", feed.ID, "uid", occ.UID, "error", err)
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("feed %s: store %s: %w", feed.ID, ext, err)
		}
		keep = append(keep, ext)
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	deleted, err := im.store.DeleteMissingExternalEvents(ctx, ExternalIDPrefix(feed.ID), keep)
	if err != nil {
		return res, fmt.Errorf("feed %s: %w", feed.ID, err)
	}
	res.Deleted = deleted

	im.logger.Info("feed imported",
		slog.String("feed", feed.ID),
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int64("deleted", res.Deleted),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (im *Importer) toEvent(occ Occurrence) database.Event {
	var ev database.Event

	start := occ.Start
	if !occ.AllDay {
		start = start.In(im.location)
	}
	ev.Date = calendar.FormatDate(start.Year(), calendar.Month(start.Month()-1), start.Day())

	if !occ.AllDay {
		hm := start.Format("15:04")
		ev.StartTime = &hm
		mins := int(occ.Duration / time.Minute)
		if mins < 0 {
			mins = 0
		}
		ev.DurationMinutes = &mins
	}

	ev.Title = truncate(strings.TrimSpace(occ.Summary), database.MaxTitleLength)
	if ev.Title == "" {
		ev.Title = untitled
	}
	if d := strings.TrimSpace(occ.Description); d != "" {
		d = truncate(d, database.MaxDescriptionLength)
		ev.Description = &d
	}

	ext := ExternalID(occ.FeedID, occ.UID, ev.Date)
	ev.ExternalID = &ext
	return ev
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
