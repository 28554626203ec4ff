package ics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
)

const sampleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20240101T000000Z
SUMMARY:Standup
DESCRIPTION:Daily sync
DTSTART:20240101T090000Z
DTEND:20240101T091500Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20240103T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240104T090000Z
SUMMARY:Standup (moved)
DTSTART:20240104T100000Z
DTEND:20240104T101500Z
END:VEVENT
BEGIN:VEVENT
UID:leap
DTSTAMP:20240101T000000Z
SUMMARY:Leap Day
DTSTART;VALUE=DATE:20240229
DTEND;VALUE=DATE:20240301
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20240101T000000Z
SUMMARY:No UID
DTSTART:20240105T090000Z
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

// removeEvent cuts the VEVENT with the given UID out of an ICS document.
func removeEvent(doc, uid string) string {
	start := strings.Index(doc, "BEGIN:VEVENT\nUID:"+uid+"\n")
	if start < 0 {
		return doc
	}
	end := strings.Index(doc[start:], "END:VEVENT\n") + len("END:VEVENT\n")
	return doc[:start] + doc[start+end:]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.DefaultConfig(":memory:"), quietLogger())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	rangeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

func TestParse(t *testing.T) {
	events, err := Parse("work", crlf(sampleFeed), quietLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Parse() returned %d events, want 3 (event without UID skipped)", len(events))
	}

	base := events[0]
	if base.UID != "standup" || base.RRule != "FREQ=DAILY;COUNT=5" || base.AllDay {
		t.Errorf("base event = %+v", base)
	}
	if len(base.ExDates) != 1 || !base.ExDates[0].Equal(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("ExDates = %v", base.ExDates)
	}
	if base.End.Sub(base.Start) != 15*time.Minute {
		t.Errorf("duration = %v, want 15m", base.End.Sub(base.Start))
	}

	if !events[1].IsOverride() {
		t.Error("second event is not an override")
	}
	if !events[2].AllDay {
		t.Error("leap day event is not all-day")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("x", []byte("  \n"), quietLogger()); !errors.Is(err, ErrInvalidFeed) {
		t.Errorf("Parse(empty) error = %v, want ErrInvalidFeed", err)
	}
}

func TestExpand(t *testing.T) {
	events, err := Parse("work", crlf(sampleFeed), quietLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	res, err := Expand(events, ExpandConfig{RangeStart: rangeStart, RangeEnd: rangeEnd})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	var got []string
	for _, o := range res.Occurrences {
		if o.AllDay {
			got = append(got, o.Summary)
			continue
		}
		got = append(got, o.Summary+"@"+o.Start.UTC().Format("01-02T15:04"))
	}
	want := []string{
		"Standup@01-01T09:00",
		"Standup@01-02T09:00",
		"Standup (moved)@01-04T10:00",
		"Standup@01-05T09:00",
		"Leap Day",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expand() =\n%v\nwant\n%v", got, want)
	}
}

func TestExpand_CapAndBadRule(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	events := []ParsedEvent{
		{UID: "hourly", Summary: "tick", Start: start, End: start, RRule: "FREQ=HOURLY"},
		{UID: "broken", Summary: "bad", Start: start, End: start, RRule: "FREQ=SOMETIMES"},
	}

	res, err := Expand(events, ExpandConfig{RangeStart: rangeStart, RangeEnd: rangeEnd, MaxOccurrencesPerEvent: 10})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(res.Occurrences) != 10 {
		t.Errorf("occurrences = %d, want 10", len(res.Occurrences))
	}
	if len(res.Truncated) != 1 || res.Truncated[0] != "hourly" {
		t.Errorf("Truncated = %v", res.Truncated)
	}
	if len(res.Invalid) != 1 || res.Invalid[0] != "broken" {
		t.Errorf("Invalid = %v", res.Invalid)
	}

	if _, err := Expand(events, ExpandConfig{RangeStart: rangeEnd, RangeEnd: rangeStart}); err == nil {
		t.Error("Expand() with reversed range error = nil")
	}
}

func TestExpand_HalfOpenRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		event ParsedEvent
		want  int
	}{
		{"all-day on end day", ParsedEvent{UID: "a", Start: day(11), End: day(12), AllDay: true}, 0},
		{"all-day on last day", ParsedEvent{UID: "a", Start: day(10), End: day(11), AllDay: true}, 1},
		{"ends at range start", ParsedEvent{UID: "a", Start: day(1).Add(-time.Hour), End: day(1)}, 0},
		{"running at range start", ParsedEvent{UID: "a", Start: day(1).Add(-time.Hour), End: day(1).Add(time.Minute)}, 1},
		{"instant at range start", ParsedEvent{UID: "a", Start: day(1), End: day(1)}, 1},
		{"instant at range end", ParsedEvent{UID: "a", Start: to, End: to}, 0},
		{"daily all-day", ParsedEvent{UID: "a", Start: day(1).AddDate(0, 0, -3), End: day(1).AddDate(0, 0, -2), AllDay: true, RRule: "FREQ=DAILY;COUNT=30"}, 10},
		{"daily ending at start", ParsedEvent{UID: "a", Start: time.Date(2023, 12, 29, 23, 0, 0, 0, time.UTC), End: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), RRule: "FREQ=DAILY;COUNT=3"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Expand([]ParsedEvent{tt.event}, ExpandConfig{RangeStart: from, RangeEnd: to})
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if len(res.Occurrences) != tt.want {
				t.Errorf("occurrences = %d, want %d: %+v", len(res.Occurrences), tt.want, res.Occurrences)
			}
		})
	}
}

func TestImport(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	im := NewImporter(store, time.UTC, quietLogger())
	feed := config.Feed{ID: "work", Name: "Work"}

	res, err := im.Import(ctx, feed, crlf(sampleFeed), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Parsed != 3 || res.Created != 5 || res.Updated != 0 || res.Deleted != 0 {
		t.Errorf("first Import() = %+v", res)
	}

	day, err := store.GetEventsForDay(ctx, "2024-01-04")
	if err != nil {
		t.Fatalf("GetEventsForDay() error = %v", err)
	}
	if len(day) != 1 || day[0].Title != "Standup (moved)" || *day[0].StartTime != "10:00" || *day[0].DurationMinutes != 15 {
		t.Errorf("2024-01-04 events = %+v", day)
	}
	if *day[0].ExternalID != "work:standup:2024-01-04" {
		t.Errorf("ExternalID = %q", *day[0].ExternalID)
	}

	leap, err := store.GetEventsForMonth(ctx, calendar.CalendarDate{Year: 2024, Month: calendar.February})
	if err != nil {
		t.Fatalf("GetEventsForMonth() error = %v", err)
	}
	if len(leap) != 1 || leap[0].Date != "2024-02-29" || leap[0].StartTime != nil {
		t.Errorf("February events = %+v", leap)
	}

	// Drop the leap day event from the feed: a re-import updates the rest
	// and removes it.
	trimmed := removeEvent(sampleFeed, "leap")
	res, err = im.Import(ctx, feed, crlf(trimmed), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if res.Created != 0 || res.Updated != 4 || res.Deleted != 1 {
		t.Errorf("second Import() = %+v", res)
	}

	if _, err := im.Import(ctx, config.Feed{ID: "bad:id"}, crlf(sampleFeed), rangeStart, rangeEnd); err == nil {
		t.Error("Import() with invalid feed id error = nil")
	}
}

func TestImport_ParseFailureKeepsEvents(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	im := NewImporter(store, time.UTC, quietLogger())
	feed := config.Feed{ID: "work"}

	if _, err := im.Import(ctx, feed, crlf(sampleFeed), rangeStart, rangeEnd); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if _, err := im.Import(ctx, feed, nil, rangeStart, rangeEnd); err == nil {
		t.Fatal("Import(empty body) error = nil")
	}

	events, err := store.GetEventsForMonth(ctx, calendar.CalendarDate{Year: 2024, Month: calendar.January})
	if err != nil {
		t.Fatalf("GetEventsForMonth() error = %v", err)
	}
	if len(events) != 4 {
		t.Errorf("January events after failed import = %d, want 4", len(events))
	}
}

func TestExportRoundTrip(t *testing.T) {
	desc := "bring snacks"
	start := "18:30"
	dur := 90
	events := []database.Event{
		{ID: 1, Title: "Party", Description: &desc, Date: "2024-02-29", StartTime: &start, DurationMinutes: &dur},
		{ID: 2, Title: "Holiday", Date: "2024-12-25"},
	}

	doc := Export(events, time.UTC)
	if !strings.Contains(doc, "BEGIN:VCALENDAR") || !strings.Contains(doc, "UID:event-1@calendar-api") {
		t.Fatalf("Export() missing calendar or UID:\n%s", doc)
	}

	parsed, err := Parse("rt", []byte(doc), quietLogger())
	if err != nil {
		t.Fatalf("Parse(Export()) error = %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("Parse(Export()) returned %d events, want 2", len(parsed))
	}

	party := parsed[0]
	if party.Summary != "Party" || party.AllDay {
		t.Errorf("party = %+v", party)
	}
	if got := party.Start.UTC().Format("2006-01-02 15:04"); got != "2024-02-29 18:30" {
		t.Errorf("party start = %s", got)
	}
	if party.End.Sub(party.Start) != 90*time.Minute {
		t.Errorf("party duration = %v", party.End.Sub(party.Start))
	}

	holiday := parsed[1]
	if !holiday.AllDay || holiday.Start.Format("2006-01-02") != "2024-12-25" {
		t.Errorf("holiday = %+v", holiday)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		w.Write(crlf(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(quietLogger())
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/cal.ics")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(string(body), "UID:standup") {
		t.Errorf("Fetch() body = %q", body)
	}

	if _, err := f.Fetch(ctx, srv.URL+"/missing.ics"); err == nil {
		t.Error("Fetch(404) error = nil")
	}
	if _, err := f.Fetch(ctx, "ftp://example.com/a.ics"); err == nil {
		t.Error("Fetch(ftp) error = nil")
	}

	path := filepath.Join(t.TempDir(), "cal.ics")
	if err := os.WriteFile(path, crlf(sampleFeed), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(ctx, "file://"+path); err != nil {
		t.Errorf("Fetch(file) error = %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"https://calendar.example.com/private/abc123/basic.ics?token=x": "https://calendar.example.com/...(redacted)",
		"not a url": "ics://...(redacted)",
	}
	for in, want := range tests {
		if got := redactURL(in); got != want {
			t.Errorf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
