package calendar

import (
	"fmt"
	"math"
	"time"
)

const (
	secondsPerDay = 24 * 60 * 60
	// daysPer400Years is the length of one full Gregorian leap cycle.
	daysPer400Years = 146097
)

// EpochBase is the DayOffset of 1970-01-01.
var EpochBase = MonthBaseDay(1970, January)

// MaxEpochDays is the largest input ResolveEpochDay accepts. Past it the
// day offset of the following month no longer fits in an int64.
var MaxEpochDays = math.MaxInt64 - int64(EpochBase) - 366

// DateFromEpochDays returns the month containing the day that lies the given
// number of whole days after 1970-01-01.
//
// Whole 400-year cycles are skipped first. The rest of the search starts
// from the remaining days divided by 366, which never overshoots because no
// year is longer than 366 days, and walks forward one month at a time.
// Negative inputs are accepted as long as they stay within year 1 or later.
// Inputs above MaxEpochDays panic.
func DateFromEpochDays(days int64) CalendarDate {
	cd, _ := ResolveEpochDay(days)
	return cd
}

// ResolveEpochDay is DateFromEpochDays that also returns the 1-based day of
// the month.
func ResolveEpochDay(days int64) (CalendarDate, int) {
	if days > MaxEpochDays {
		panic(fmt.Sprintf("calendar: epoch day %d is after %d", days, MaxEpochDays))
	}
	target := DayOffset(days) + EpochBase
	cycles, rest := days/daysPer400Years, days%daysPer400Years
	cd := CalendarDate{Year: 1970 + int(cycles*400+rest/366), Month: January}
	// Only reachable for days before the epoch, where truncating division
	// rounds the estimate up.
	for cd.BaseDay() > target {
		cd.Year--
	}
	for {
		next := cd.Next()
		if next.BaseDay() > target {
			break
		}
		cd = next
	}
	return cd, int(target-cd.BaseDay()) + 1
}

// EpochDays returns the number of days between 1970-01-01 and the given day
// of the zero-based month of year.
func EpochDays(year int, month Month, day int) int64 {
	return int64(MonthBaseDay(year, month)-EpochBase) + int64(day-1)
}

// Today resolves the calendar month and 1-based day of month of now, as
// observed in now's own location.
func Today(now time.Time) (CalendarDate, int) {
	_, offset := now.Zone()
	secs := now.Unix() + int64(offset)
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return ResolveEpochDay(days)
}
