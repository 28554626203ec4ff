package calendar

// WeeksPerLayout is the number of week rows in a month grid. Six rows are
// enough for a 31 day month starting on a Saturday.
const WeeksPerLayout = 6

// MonthLayout is the Sunday-first week grid of a month. Cells that fall
// outside the month hold 0.
type MonthLayout struct {
	Date         CalendarDate           `json:"date"`
	Name         string                 `json:"name"`
	FirstWeekday Weekday                `json:"first_weekday"`
	Days         int                    `json:"days"`
	Weeks        [WeeksPerLayout][7]int `json:"weeks"`
}

// Layout computes the week grid for cd.
func Layout(cd CalendarDate) MonthLayout {
	l := MonthLayout{
		Date:         cd,
		Name:         cd.String(),
		FirstWeekday: cd.DayOfWeek(1),
		Days:         cd.DaysInMonth(),
	}
	cell := int(l.FirstWeekday)
	for day := 1; day <= l.Days; day++ {
		l.Weeks[cell/7][cell%7] = day
		cell++
	}
	return l
}

// Position returns the week row and weekday column of day in the grid, or
// ok == false if day is not part of the month.
func (l MonthLayout) Position(day int) (week int, weekday Weekday, ok bool) {
	if day < 1 || day > l.Days {
		return 0, 0, false
	}
	cell := int(l.FirstWeekday) + day - 1
	return cell / 7, Weekday(cell % 7), true
}

// UsedWeeks returns the number of week rows that contain at least one day.
func (l MonthLayout) UsedWeeks() int {
	return (int(l.FirstWeekday) + l.Days + 6) / 7
}

// YearLayout returns the layouts of all twelve months of year.
func YearLayout(year int) []MonthLayout {
	out := make([]MonthLayout, 0, 12)
	for m := January; m <= December; m++ {
		out = append(out, Layout(CalendarDate{Year: year, Month: m}))
	}
	return out
}

// Surrounding returns the month before cd, cd itself and the month after.
func Surrounding(cd CalendarDate) [3]CalendarDate {
	return [3]CalendarDate{cd.Prev(), cd, cd.Next()}
}
