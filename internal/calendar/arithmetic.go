package calendar

import "fmt"

// daysPerMonth holds month lengths for a common year.
var daysPerMonth = [12]int64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// cumulativeDays[m] is the number of days in a common year before month m.
var cumulativeDays = func() [12]int64 {
	var out [12]int64
	for m := 1; m < 12; m++ {
		out[m] = out[m-1] + daysPerMonth[m-1]
	}
	return out
}()

// IsLeapYear reports whether year is a leap year under the Gregorian rule:
// centuries are leap only when divisible by 400, other years when divisible by 4.
func IsLeapYear(year int) bool {
	if year%100 == 0 {
		return year%400 == 0
	}
	return year%4 == 0
}

// YearBaseDay returns the number of days before the first day of year,
// i.e. the days contributed by years 1 through year-1.
//
// Leap rules are applied proleptically; there is no cutoff at 1582.
func YearBaseDay(year int) DayOffset {
	mustYear(year)
	y := int64(year - 1)
	return DayOffset(y*365 + y/4 - y/100 + y/400)
}

// MonthBaseDay returns the DayOffset at which the zero-based month of year
// begins. February's leap day only shifts the months after it.
func MonthBaseDay(year int, month Month) DayOffset {
	mustMonth(month)
	base := YearBaseDay(year) + DayOffset(cumulativeDays[month])
	if month > February && IsLeapYear(year) {
		base++
	}
	return base
}

// DayOfWeek returns the weekday of day within the zero-based month of year.
// The day is added to MonthBaseDay as a raw offset, so the 1-based day of
// the month yields the calendar weekday: DayOfWeek(2022, July, 3) is Sunday.
func DayOfWeek(year int, month Month, day int) Weekday {
	return weekdayFromOffset(int64(MonthBaseDay(year, month)) + int64(day))
}

// DaysInMonth returns the number of days in the zero-based month of year.
func DaysInMonth(year int, month Month) int {
	mustMonth(month)
	n := daysPerMonth[month]
	if month == February && IsLeapYear(year) {
		n++
	}
	return int(n)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

func mustYear(year int) {
	if year < 1 {
		panic(fmt.Sprintf("calendar: year %d is before year 1", year))
	}
}

func mustMonth(month Month) {
	if !month.Valid() {
		panic(fmt.Sprintf("calendar: month %d outside [0, 11]", int(month)))
	}
}
