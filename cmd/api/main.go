// Package main is the entry point for the calendar API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zapponejosh/calendar-api/internal/api"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/eventstore"
	"github.com/zapponejosh/calendar-api/internal/ics"
	"github.com/zapponejosh/calendar-api/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	log := logger.Setup(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting calendar API",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("database_driver", cfg.DatabaseDriver),
		slog.String("log_level", cfg.LogLevel),
	)
	if cfg.IsDevelopment() && cfg.APIKey == "" {
		log.Warn("API_KEY is not set; write endpoints accept unauthenticated requests")
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := eventstore.OpenAndMigrate(openCtx, cfg, log)
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := api.NewMetrics(reg)

	if cfg.FeedsFile != "" {
		syncer := ics.NewSyncer(
			ics.SyncConfig{
				FeedsFile:  cfg.FeedsFile,
				Schedule:   cfg.SyncSchedule,
				WindowDays: cfg.SyncWindowDays,
				OnFeeds:    metrics.SetFeeds,
			},
			ics.NewFetcher(log),
			ics.NewImporter(store, time.Local, log),
			log,
		)
		if err := syncer.Start(ctx); err != nil {
			return fmt.Errorf("start feed sync: %w", err)
		}
		defer syncer.Stop()

		// Import once at startup rather than waiting for the first tick.
		go func() {
			if _, err := syncer.SyncAll(ctx); err != nil {
				log.Warn("initial feed sync finished with errors", slog.Any("error", err))
			}
		}()
	}

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.CleanupVisitors(ctx)

	handlers := api.NewHandlers(store, cfg, metrics, log)
	router := api.NewRouter(handlers, cfg, log, api.RouterOptions{
		Metrics:  metrics,
		Gatherer: reg,
		Limiter:  limiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("calendar API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("calendar API stopped")
	return nil
}
