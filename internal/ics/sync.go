package ics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/zapponejosh/calendar-api/internal/config"
)

// SyncConfig configures a Syncer.
type SyncConfig struct {
	FeedsFile  string // YAML feed list; required for Start
	Schedule   string // standard five field cron expression
	WindowDays int    // days imported before and after today

	// OnFeeds, if set, receives every feed list the Syncer adopts.
	OnFeeds func([]config.Feed)
}

// Syncer imports every configured feed on a cron schedule and reloads the
// feed list whenever its file changes.
type Syncer struct {
	cfg      SyncConfig
	fetcher  *Fetcher
	importer *Importer
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	feeds []config.Feed

	cron    *cron.Cron
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSyncer builds a Syncer. Call Start to begin scheduling.
func NewSyncer(cfg SyncConfig, fetcher *Fetcher, importer *Importer, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		cfg:      cfg,
		fetcher:  fetcher,
		importer: importer,
		logger:   logger,
		now:      time.Now,
	}
}

// Feeds returns the currently loaded feed list.
func (s *Syncer) Feeds() []config.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]config.Feed(nil), s.feeds...)
}

// SetFeeds replaces the feed list.
func (s *Syncer) SetFeeds(feeds []config.Feed) {
	s.mu.Lock()
	s.feeds = append([]config.Feed(nil), feeds...)
	s.mu.Unlock()
	if s.cfg.OnFeeds != nil {
		s.cfg.OnFeeds(feeds)
	}
}

// Reload reads the feeds file again. On error the previous list is kept.
func (s *Syncer) Reload() error {
	list, err := config.LoadFeeds(s.cfg.FeedsFile)
	if err != nil {
		return err
	}
	s.SetFeeds(list.Feeds)
	s.logger.Info("feed list loaded", "path", s.cfg.FeedsFile, "feeds", len(list.Feeds))
	return nil
}

// Window returns the import range around the current day.
func (s *Syncer) Window() (from, to time.Time) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -s.cfg.WindowDays), today.AddDate(0, 0, s.cfg.WindowDays+1)
}

// SyncFeed fetches and imports one feed.
func (s *Syncer) SyncFeed(ctx context.Context, feed config.Feed) (Result, error) {
	body, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return Result{FeedID: feed.ID}, fmt.Errorf("feed %s: %w", feed.ID, err)
	}
	from, to := s.Window()
	return s.importer.Import(ctx, feed, body, from, to)
}

// SyncAll imports every feed in turn. A failing feed is logged and does
// not stop the others; the joined errors are returned.
func (s *Syncer) SyncAll(ctx context.Context) ([]Result, error) {
	feeds := s.Feeds()
	results := make([]Result, 0, len(feeds))
	var errs []error

	for _, feed := range feeds {
		res, err := s.SyncFeed(ctx, feed)
		if err != nil {
			s.logger.Error("feed sync failed", "feed", feed.ID, "url", redactURL(feed.URL), "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Start loads the feed list, schedules SyncAll and watches the feeds
// file. Jobs run with ctx; Stop ends both.
func (s *Syncer) Start(ctx context.Context) error {
	if s.cfg.FeedsFile == "" {
		return errors.New("no feeds file configured")
	}
	if err := s.Reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so that a replaced file is still seen.
	if err := watcher.Add(filepath.Dir(s.cfg.FeedsFile)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch feeds file: %w", err)
	}

	c := cron.New(
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.SyncAll(ctx); err != nil {
			s.logger.Warn("scheduled sync finished with errors", "error", err)
		}
	}); err != nil {
		watcher.Close()
		return fmt.Errorf("schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron = c
	s.watcher = watcher
	s.done = make(chan struct{})

	go s.watch(ctx)
	c.Start()

	s.logger.Info("feed sync started", "schedule", s.cfg.Schedule, "window_days", s.cfg.WindowDays)
	return nil
}

func (s *Syncer) watch(ctx context.Context) {
	defer close(s.done)
	target := filepath.Clean(s.cfg.FeedsFile)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Error("feed list reload failed, keeping previous list", "path", target, "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("feeds file watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts scheduling, waits for a running sync and stops watching.
func (s *Syncer) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.watcher != nil {
		s.watcher.Close()
		<-s.done
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
