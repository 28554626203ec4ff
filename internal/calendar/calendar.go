// Package calendar provides proleptic Gregorian calendar arithmetic.
//
// Every day is addressed by a DayOffset counted from the first day of year 1.
// Months are zero-based (January = 0) throughout this package; the 1-based
// form only appears at the edges (ParseDate, FormatDate, Validator).
//
// All functions are pure and safe for concurrent use.
package calendar

import "fmt"

// DayOffset is the number of days elapsed since the first day of year 1.
// Day 0 is January 1st of year 1.
type DayOffset int64

// Month is a zero-based month of the year.
type Month int

// Months of the year, zero-based.
const (
	January Month = iota
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// String returns the English name of the month ("January").
func (m Month) String() string {
	if m < January || m > December {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return monthNames[m]
}

// Short returns the three letter abbreviation of the month ("Jan").
func (m Month) Short() string {
	return m.String()[:3]
}

// Valid reports whether m is within [January, December].
func (m Month) Valid() bool {
	return m >= January && m <= December
}

// Weekday is a day of the week, Sunday first.
type Weekday int

// Days of the week in canonical order.
const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Short returns the three letter abbreviation of the weekday ("Sun").
func (d Weekday) Short() string {
	return d.String()[:3]
}

// weekdayFromOffset maps any integer onto the weekday cycle.
func weekdayFromOffset(n int64) Weekday {
	r := n % 7
	if r < 0 {
		r += 7
	}
	return Weekday(r)
}

// CalendarDate identifies a month within a year. It carries no day; the
// day of month is supplied per operation.
type CalendarDate struct {
	Year  int   `json:"year"`
	Month Month `json:"month"`
}

// NewCalendarDate returns the CalendarDate for year and zero-based month.
func NewCalendarDate(year int, month Month) CalendarDate {
	return CalendarDate{Year: year, Month: month}
}

// String returns the month and year, e.g. "July 2022".
func (cd CalendarDate) String() string {
	return fmt.Sprintf("%s %d", cd.Month, cd.Year)
}

// Next returns the following month, rolling into the next year after December.
func (cd CalendarDate) Next() CalendarDate {
	if cd.Month == December {
		return CalendarDate{Year: cd.Year + 1, Month: January}
	}
	return CalendarDate{Year: cd.Year, Month: cd.Month + 1}
}

// Prev returns the preceding month, rolling into the previous year before
// January. The result for January of year 1 is outside the calendar.
func (cd CalendarDate) Prev() CalendarDate {
	if cd.Month == January {
		return CalendarDate{Year: cd.Year - 1, Month: December}
	}
	return CalendarDate{Year: cd.Year, Month: cd.Month - 1}
}

// Before reports whether cd precedes other.
func (cd CalendarDate) Before(other CalendarDate) bool {
	if cd.Year != other.Year {
		return cd.Year < other.Year
	}
	return cd.Month < other.Month
}

// BaseDay returns MonthBaseDay for cd.
func (cd CalendarDate) BaseDay() DayOffset {
	return MonthBaseDay(cd.Year, cd.Month)
}

// DayOfWeek returns the weekday of the given day of this month.
func (cd CalendarDate) DayOfWeek(day int) Weekday {
	return DayOfWeek(cd.Year, cd.Month, day)
}

// DaysInMonth returns the number of days in this month.
func (cd CalendarDate) DaysInMonth() int {
	return DaysInMonth(cd.Year, cd.Month)
}

// MarshalText encodes the weekday by name.
func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts a full or three letter weekday name in any case.
func (d *Weekday) UnmarshalText(text []byte) error {
	w, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = w
	return nil
}
