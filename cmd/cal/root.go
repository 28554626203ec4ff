package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
	"github.com/zapponejosh/calendar-api/internal/eventstore"
	"github.com/zapponejosh/calendar-api/internal/logger"
)

// options are the flags shared by every command.
type options struct {
	dbPath      string
	driver      string
	databaseURL string
	logLevel    string
	minYear     int
	maxYear     int

	now func() time.Time
}

func (o *options) validator() calendar.Validator {
	return calendar.Validator{MinYear: o.minYear, MaxYear: o.maxYear}
}

// today returns the current month and day in local time.
func (o *options) today() (calendar.CalendarDate, int) {
	return calendar.Today(o.now())
}

// logger writes diagnostics to the command's stderr.
func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return logger.New(cmd.ErrOrStderr(), o.logLevel, "text")
}

func (o *options) storeConfig() *config.Config {
	return &config.Config{
		DatabaseDriver: o.driver,
		DatabasePath:   o.dbPath,
		DatabaseURL:    o.databaseURL,
	}
}

// openStore opens the configured event store and applies migrations.
func (o *options) openStore(cmd *cobra.Command) (database.Store, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	return eventstore.OpenAndMigrate(ctx, o.storeConfig(), o.logger(cmd))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr is envOr for integers. Unparseable values are ignored.
func envIntOr(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// newRootCmd builds the command tree. now supplies the current time.
func newRootCmd(now func() time.Time) *cobra.Command {
	opts := &options{now: now}
	var wholeYear, single bool

	cmd := &cobra.Command{
		Use:   "cal [YEAR_OR_MONTH] [MONTH]",
		Short: "Display a calendar for a given year or month",
		Long: `Display a calendar and manage the events stored with it.

Without arguments the previous, current and next month are shown.
A first argument above 12 is a year, otherwise a month of the current
year; a second argument is the month of the given year.`,
		Example: `  cal            three months around today
  cal -y 2024    the whole of 2024
  cal 2024 12    December 2024 with its neighbours
  cal -s feb     February of this year only`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			today, _ := opts.today()
			v, err := parseView(args, wholeYear, today, opts.validator())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), v.render(single))
			return err
		},
	}

	cmd.Flags().BoolVarP(&wholeYear, "year", "y", false, "show the entire year")
	cmd.Flags().BoolVarP(&single, "single-month", "s", false, "show only one month instead of three")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.dbPath, "database", "d", envOr("DATABASE_PATH", "./data/calendar.db"), "SQLite database file")
	pf.StringVar(&opts.driver, "driver", envOr("DATABASE_DRIVER", config.DriverSQLite), "event store driver: sqlite or postgres")
	pf.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	pf.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level: debug, info, warn, error")
	pf.IntVar(&opts.minYear, "min-year", envIntOr("MIN_YEAR", calendar.DefaultMinYear), "earliest accepted year")
	pf.IntVar(&opts.maxYear, "max-year", envIntOr("MAX_YEAR", calendar.DefaultMaxYear), "latest accepted year")

	cmd.AddCommand(
		newWeekdayCmd(opts),
		newLeapCmd(opts),
		newEpochCmd(opts),
		newEventsCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
		newPurgeCmd(opts),
	)
	return cmd
}
