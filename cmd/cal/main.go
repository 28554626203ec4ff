// Command cal prints calendars and manages the event store from the
// terminal.
//
// Usage:
//
//	cal [-y] [-s] [YEAR_OR_MONTH] [MONTH]
//	cal weekday 2022 7 4
//	cal events list --month 2022-07
//	cal import work.ics --feed work
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(time.Now).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
