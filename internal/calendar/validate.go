package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrYearOutOfRange is returned when a year is outside the accepted range.
	ErrYearOutOfRange = errors.New("year out of range")

	// ErrMonthOutOfRange is returned when a month is not within 1-12.
	ErrMonthOutOfRange = errors.New("month out of range")

	// ErrDayOutOfRange is returned when a day does not exist in its month.
	ErrDayOutOfRange = errors.New("day out of range")
)

// Default year bounds for user input. The arithmetic itself accepts any
// year from 1; 1583 is the first full year of the Gregorian calendar.
const (
	DefaultMinYear = 1583
	DefaultMaxYear = 9999
)

// Validator checks user supplied values before they reach the arithmetic
// functions, which panic on out of range input.
type Validator struct {
	MinYear int
	MaxYear int
}

// DefaultValidator returns a Validator using DefaultMinYear and DefaultMaxYear.
func DefaultValidator() Validator {
	return Validator{MinYear: DefaultMinYear, MaxYear: DefaultMaxYear}
}

// ValidateYear checks that year lies within [MinYear, MaxYear]. A zero
// bound is treated as unset; years below 1 are always rejected.
func (v Validator) ValidateYear(year int) error {
	lo := v.MinYear
	if lo < 1 {
		lo = 1
	}
	if year < lo {
		return fmt.Errorf("year %d is before %d: %w", year, lo, ErrYearOutOfRange)
	}
	if v.MaxYear > 0 && year > v.MaxYear {
		return fmt.Errorf("year %d is after %d: %w", year, v.MaxYear, ErrYearOutOfRange)
	}
	return nil
}

// ValidateMonth1 checks a 1-based month and returns its zero-based Month.
func (v Validator) ValidateMonth1(month int) (Month, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("month %d must be between 1 and 12: %w", month, ErrMonthOutOfRange)
	}
	return Month(month - 1), nil
}

// ValidateDay checks that day exists in cd.
func (v Validator) ValidateDay(cd CalendarDate, day int) error {
	if n := cd.DaysInMonth(); day < 1 || day > n {
		return fmt.Errorf("day %d must be between 1 and %d for %s: %w", day, n, cd, ErrDayOutOfRange)
	}
	return nil
}

// CalendarDate validates a year and 1-based month together.
func (v Validator) CalendarDate(year, month int) (CalendarDate, error) {
	if err := v.ValidateYear(year); err != nil {
		return CalendarDate{}, err
	}
	m, err := v.ValidateMonth1(month)
	if err != nil {
		return CalendarDate{}, err
	}
	return CalendarDate{Year: year, Month: m}, nil
}

// Date validates a year, 1-based month and day together.
func (v Validator) Date(year, month, day int) (CalendarDate, error) {
	cd, err := v.CalendarDate(year, month)
	if err != nil {
		return CalendarDate{}, err
	}
	if err := v.ValidateDay(cd, day); err != nil {
		return CalendarDate{}, err
	}
	return cd, nil
}

// EpochRange returns the day counts, relative to 1970-01-01, of the first
// and last day of the accepted years. An unset MaxYear counts as
// DefaultMaxYear here, keeping the range finite.
func (v Validator) EpochRange() (lo, hi int64) {
	minYear, maxYear := v.MinYear, v.MaxYear
	if minYear < 1 {
		minYear = 1
	}
	if maxYear <= 0 {
		maxYear = DefaultMaxYear
	}
	return EpochDays(minYear, January, 1), EpochDays(maxYear, December, 31)
}
