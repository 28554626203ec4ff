package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DateLayout is the wire form of a day: YYYY-MM-DD with a 1-based month.
const DateLayout = "2006-01-02"

var dateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// FormatDate formats the given day of the zero-based month as YYYY-MM-DD.
func FormatDate(year int, month Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month)+1, day)
}

// ParseDate parses a YYYY-MM-DD string, checking the day against the
// length of its month. The returned month is zero-based.
func ParseDate(s string) (CalendarDate, int, error) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return CalendarDate{}, 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if year < 1 {
		return CalendarDate{}, 0, fmt.Errorf("invalid date %q: %w", s, ErrYearOutOfRange)
	}
	if month < 1 || month > 12 {
		return CalendarDate{}, 0, fmt.Errorf("invalid date %q: %w", s, ErrMonthOutOfRange)
	}
	cd := CalendarDate{Year: year, Month: Month(month - 1)}
	if day < 1 || day > cd.DaysInMonth() {
		return CalendarDate{}, 0, fmt.Errorf("invalid date %q: %w", s, ErrDayOutOfRange)
	}
	return cd, day, nil
}

// MonthRange returns the first and last day of cd in YYYY-MM-DD form.
// Because the form is fixed width, string comparison orders days correctly.
func MonthRange(cd CalendarDate) (first, last string) {
	return FormatDate(cd.Year, cd.Month, 1), FormatDate(cd.Year, cd.Month, cd.DaysInMonth())
}

// ParseMonth parses a month given as a 1-based number or as a name or
// unambiguous prefix of one ("feb", "September").
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d: %w", n, ErrMonthOutOfRange)
		}
		return Month(n - 1), nil
	}
	lc := strings.ToLower(s)
	if len(lc) >= 3 {
		for i, name := range monthNames {
			if strings.HasPrefix(strings.ToLower(name), lc) {
				return Month(i), nil
			}
		}
	}
	return 0, fmt.Errorf("invalid month: %q", s)
}

// ParseWeekday parses a full or three letter weekday name in any case.
func ParseWeekday(s string) (Weekday, error) {
	lc := strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		full := strings.ToLower(name)
		if lc == full || lc == full[:3] {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}
