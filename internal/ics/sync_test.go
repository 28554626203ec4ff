package ics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zapponejosh/calendar-api/internal/config"
)

func writeFeeds(t *testing.T, path string, feeds ...config.Feed) {
	t.Helper()
	data := "feeds:\n"
	for _, f := range feeds {
		data += fmt.Sprintf("  - id: %s\n    name: %s\n    url: %s\n", f.ID, f.Name, f.URL)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write feeds: %v", err)
	}
}

func TestSyncer_SyncAll(t *testing.T) {
	dir := t.TempDir()
	icsPath := filepath.Join(dir, "work.ics")
	if err := os.WriteFile(icsPath, crlf(sampleFeed), 0o600); err != nil {
		t.Fatal(err)
	}

	store := testStore(t)
	s := NewSyncer(SyncConfig{WindowDays: 60}, NewFetcher(quietLogger()), NewImporter(store, time.UTC, quietLogger()), quietLogger())
	s.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }
	s.SetFeeds([]config.Feed{
		{ID: "work", URL: "file://" + icsPath},
		{ID: "gone", URL: "file://" + filepath.Join(dir, "missing.ics")},
	})

	results, err := s.SyncAll(context.Background())
	if err == nil {
		t.Error("SyncAll() error = nil, want error for missing feed")
	}
	if len(results) != 1 || results[0].FeedID != "work" || results[0].Created != 5 {
		t.Errorf("SyncAll() results = %+v", results)
	}
}

func TestSyncer_Window(t *testing.T) {
	s := NewSyncer(SyncConfig{WindowDays: 10}, nil, nil, quietLogger())
	s.now = func() time.Time { return time.Date(2024, 3, 1, 17, 45, 0, 0, time.UTC) }

	from, to := s.Window()
	if want := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
}

func TestSyncer_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	feedsPath := filepath.Join(dir, "feeds.yaml")
	writeFeeds(t, feedsPath, config.Feed{ID: "a", Name: "A", URL: "https://example.com/a.ics"})

	s := NewSyncer(SyncConfig{FeedsFile: feedsPath, Schedule: "@every 1h", WindowDays: 30}, NewFetcher(quietLogger()), nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if got := len(s.Feeds()); got != 1 {
		t.Fatalf("Feeds() after Start = %d, want 1", got)
	}

	writeFeeds(t, feedsPath,
		config.Feed{ID: "a", Name: "A", URL: "https://example.com/a.ics"},
		config.Feed{ID: "b", Name: "B", URL: "https://example.com/b.ics"},
	)

	deadline := time.Now().Add(5 * time.Second)
	for len(s.Feeds()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("feed list not reloaded, Feeds() = %v", s.Feeds())
		}
		time.Sleep(20 * time.Millisecond)
	}

	// An invalid file keeps the previous list.
	if err := os.WriteFile(feedsPath, []byte("feeds: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err == nil {
		t.Error("Reload() of invalid file error = nil")
	}
	if got := len(s.Feeds()); got != 2 {
		t.Errorf("Feeds() after bad reload = %d, want 2", got)
	}
}

func TestSyncer_StartWithoutFile(t *testing.T) {
	s := NewSyncer(SyncConfig{Schedule: "@every 1h"}, nil, nil, quietLogger())
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() without feeds file error = nil")
	}
}

func TestSyncer_OnFeeds(t *testing.T) {
	var got []string
	s := NewSyncer(SyncConfig{OnFeeds: func(feeds []config.Feed) {
		got = got[:0]
		for _, f := range feeds {
			got = append(got, f.ID)
		}
	}}, nil, nil, quietLogger())

	s.SetFeeds([]config.Feed{{ID: "a"}, {ID: "b"}})
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("OnFeeds received %v, want [a b]", got)
	}
}
