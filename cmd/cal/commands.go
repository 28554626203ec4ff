package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
	"github.com/zapponejosh/calendar-api/internal/eventstore"
	"github.com/zapponejosh/calendar-api/internal/ics"
)

func newWeekdayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "weekday YEAR MONTH DAY",
		Short: "Print the day of the week of a date",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			month, err := calendar.ParseMonth(args[1])
			if err != nil {
				return err
			}
			day, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid day %q", args[2])
			}

			cd, err := opts.validator().Date(year, int(month)+1, day)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cd.DayOfWeek(day))
			return nil
		},
	}
}

func newLeapCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "leap YEAR",
		Short: "Report whether a year is a leap year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			if err := opts.validator().ValidateYear(year); err != nil {
				return err
			}

			not := " not"
			if calendar.IsLeapYear(year) {
				not = ""
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d is%s a leap year (%d days)\n", year, not, calendar.DaysInYear(year))
			return nil
		},
	}
}

func newEpochCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "epoch DAYS|YYYY-MM-DD",
		Short: "Convert between dates and days since 1970-01-01",
		Long: `Given a day count, print the date that many days after 1970-01-01
(negative counts go backwards). Given a date, print its day count.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.validator()

			if strings.Count(args[0], "-") >= 2 {
				cd, day, err := calendar.ParseDate(args[0])
				if err != nil {
					return err
				}
				if err := v.ValidateYear(cd.Year); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), calendar.EpochDays(cd.Year, cd.Month, day))
				return nil
			}

			days, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid day count or date %q", args[0])
			}
			lo, hi := v.EpochRange()
			if days < lo || days > hi {
				return fmt.Errorf("day count must be between %d and %d", lo, hi)
			}
			cd, day := calendar.ResolveEpochDay(days)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", calendar.FormatDate(cd.Year, cd.Month, day), cd.DayOfWeek(day))
			return nil
		},
	}
}

func newEventsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, add and delete stored events",
	}
	cmd.AddCommand(newEventsListCmd(opts), newEventsAddCmd(opts), newEventsDeleteCmd(opts))
	return cmd
}

func newEventsListCmd(opts *options) *cobra.Command {
	var date, month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the events of a day or month (default: this month)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" && month != "" {
				return errors.New("--date and --month are mutually exclusive")
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var events []database.Event
			switch {
			case date != "":
				cd, day, err := calendar.ParseDate(date)
				if err != nil {
					return err
				}
				events, err = store.GetEventsForDay(cmd.Context(), calendar.FormatDate(cd.Year, cd.Month, day))
				if err != nil {
					return err
				}
			default:
				cd, _ := opts.today()
				if month != "" {
					if cd, _, err = calendar.ParseDate(month + "-01"); err != nil {
						return fmt.Errorf("invalid month %q: want YYYY-MM", month)
					}
				}
				events, err = store.GetEventsForMonth(cmd.Context(), cd)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "no events")
				return nil
			}
			for _, e := range events {
				fmt.Fprintln(out, formatEvent(e))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD)")
	cmd.Flags().StringVar(&month, "month", "", "month to list (YYYY-MM)")
	return cmd
}

// formatEvent renders one event per line: ID, date, start time, title,
// duration and an import marker.
func formatEvent(e database.Event) string {
	start := ""
	if e.StartTime != nil {
		start = *e.StartTime
	}
	line := fmt.Sprintf("%4d  %s  %-5s  %s", e.ID, e.Date, start, e.Title)
	if e.DurationMinutes != nil && *e.DurationMinutes > 0 {
		line += fmt.Sprintf(" (%dm)", *e.DurationMinutes)
	}
	if e.Imported() {
		line += " [imported]"
	}
	return line
}

func newEventsAddCmd(opts *options) *cobra.Command {
	var (
		title, date, start, description string
		duration                        int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := database.Event{Title: title, Date: date}
			if start != "" {
				e.StartTime = &start
			}
			if cmd.Flags().Changed("duration") {
				e.DurationMinutes = &duration
			}
			if description != "" {
				e.Description = &description
			}

			if cd, _, err := e.Day(); err == nil {
				if err := opts.validator().ValidateYear(cd.Year); err != nil {
					return err
				}
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.AddEvent(cmd.Context(), &e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added event %d\n", e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "event title (required)")
	cmd.Flags().StringVar(&date, "date", "", "event date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&start, "time", "", "start time, HH:MM; omit for an all-day event")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("date")
	return cmd
}

func newEventsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteEvent(cmd.Context(), id); err != nil {
				if database.IsNotFound(err) {
					return fmt.Errorf("event %d not found", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted event %d\n", id)
			return nil
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	var (
		feedID     string
		from, to   string
		windowDays int
	)

	cmd := &cobra.Command{
		Use:   "import SOURCE",
		Short: "Import an iCalendar file or URL as a feed",
		Long: `Import the events of an iCalendar document. SOURCE is a file path or an
http(s) URL. Events are stored under the feed ID; importing the same feed
again updates its events and removes those no longer present.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.ValidFeedID(feedID) {
				return fmt.Errorf("invalid feed id %q: use letters, digits, '-' and '_'", feedID)
			}

			now := opts.now()
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
			start, end := today.AddDate(0, 0, -windowDays), today.AddDate(0, 0, windowDays+1)
			var err error
			if from != "" {
				if start, err = time.ParseInLocation(calendar.DateLayout, from, time.Local); err != nil {
					return fmt.Errorf("invalid --from %q", from)
				}
			}
			if to != "" {
				if end, err = time.ParseInLocation(calendar.DateLayout, to, time.Local); err != nil {
					return fmt.Errorf("invalid --to %q", to)
				}
				end = end.AddDate(0, 0, 1)
			}

			log := opts.logger(cmd)
			body, err := readSource(cmd, ics.NewFetcher(log), args[0])
			if err != nil {
				return err
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := ics.NewImporter(store, time.Local, log).Import(cmd.Context(), config.Feed{ID: feedID}, body, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created, %d updated, %d deleted, %d skipped\n",
				res.FeedID, res.Created, res.Updated, res.Deleted, res.Skipped)
			for _, uid := range res.Truncated {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: occurrences of %s were truncated\n", uid)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feedID, "feed", "", "feed ID the events are stored under (required)")
	cmd.Flags().StringVar(&from, "from", "", "first day to import, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day to import, YYYY-MM-DD")
	cmd.Flags().IntVar(&windowDays, "window-days", 365, "days before and after today to import when --from/--to are not set")
	cmd.MarkFlagRequired("feed")
	return cmd
}

// readSource reads a local file, or fetches SOURCE when it is a URL.
func readSource(cmd *cobra.Command, f *ics.Fetcher, source string) ([]byte, error) {
	if strings.Contains(source, "://") {
		return f.Fetch(cmd.Context(), source)
	}
	body, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return body, nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			store, err := eventstore.Open(ctx, opts.storeConfig(), opts.logger(cmd))
			cancel()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", n)
			return nil
		},
	}
}

func newPurgeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-imported",
		Short: "Delete every event that came from a feed import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.DeleteAllExternalEvents(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d imported events\n", n)
			return nil
		},
	}
}
