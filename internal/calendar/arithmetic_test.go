package calendar

import (
	"testing"
)

func TestIsLeapYear(t *testing.T) {
	tests := []struct {
		year int
		want bool
	}{
		{2000, true},
		{1900, false},
		{2024, true},
		{2023, false},
		{1600, true},
		{1700, false},
		{4, true},
		{1, false},
		{400, true},
	}

	for _, tt := range tests {
		if got := IsLeapYear(tt.year); got != tt.want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestYearBaseDay(t *testing.T) {
	tests := []struct {
		name string
		year int
		want DayOffset
	}{
		{"first year", 1, 0},
		{"fourth year", 4, 365 * 3},
		{"after first leap", 5, 365*4 + 1},
		{"unix epoch year", 1970, 719162},
		{"millennium", 2001, 730485},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearBaseDay(tt.year); got != tt.want {
				t.Errorf("YearBaseDay(%d) = %d, want %d", tt.year, got, tt.want)
			}
		})
	}
}

func TestMonthBaseDay(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month Month
		want  DayOffset
	}{
		{"first year february", 1, February, 31},
		{"first year january", 1, January, 0},
		{"leap year february", 4, February, 365*3 + 31},
		{"leap year april", 4, April, 365*3 + 31 + 29 + 31},
		{"leap year march", 4, March, 365*3 + 31 + 29},
		{"common year march", 3, March, 365*2 + 31 + 28},
		{"december 2024", 2024, December, 739220},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthBaseDay(tt.year, tt.month); got != tt.want {
				t.Errorf("MonthBaseDay(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
			}
		})
	}
}

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month Month
		day   int
		want  Weekday
	}{
		{"july 2022", 2022, 6, 3, Sunday},
		{"june 2022", 2022, 5, 27, Monday},
		{"leap year june", 2020, 5, 9, Tuesday},
		{"leap year january", 2020, 0, 15, Wednesday},
		{"unix epoch", 1970, January, 1, Thursday},
		{"millennium", 2000, January, 1, Saturday},
		{"leap day", 2024, February, 29, Thursday},
		{"first day", 1, January, 1, Monday},
		{"day zero is last day of previous month", 2022, July, 0, Thursday},
		{"negative offset", 2022, July, -7, Thursday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayOfWeek(tt.year, tt.month, tt.day); got != tt.want {
				t.Errorf("DayOfWeek(%d, %d, %d) = %v, want %v", tt.year, tt.month, tt.day, got, tt.want)
			}
		})
	}
}

func TestYearSpan(t *testing.T) {
	for year := 1; year <= 2500; year++ {
		span := YearBaseDay(year+1) - YearBaseDay(year)
		want := DayOffset(365)
		if IsLeapYear(year) {
			want = 366
		}
		if span != want {
			t.Fatalf("YearBaseDay(%d) - YearBaseDay(%d) = %d, want %d", year+1, year, span, want)
		}
		if DaysInYear(year) != int(want) {
			t.Fatalf("DaysInYear(%d) = %d, want %d", year, DaysInYear(year), want)
		}
	}
}

func TestMonthBaseDayMonotonic(t *testing.T) {
	for _, year := range []int{1, 4, 100, 1900, 2000, 2023, 2024} {
		prev := MonthBaseDay(year, January)
		if prev < YearBaseDay(year) {
			t.Errorf("MonthBaseDay(%d, January) = %d, below YearBaseDay %d", year, prev, YearBaseDay(year))
		}
		for m := February; m <= December; m++ {
			cur := MonthBaseDay(year, m)
			if cur <= prev {
				t.Errorf("MonthBaseDay(%d, %d) = %d, not greater than %d", year, m, cur, prev)
			}
			if got, want := int(cur-prev), DaysInMonth(year, m-1); got != want {
				t.Errorf("MonthBaseDay(%d, %d) step = %d, want %d", year, m, got, want)
			}
			prev = cur
		}
		if got, want := YearBaseDay(year+1)-prev, DayOffset(31); got != want {
			t.Errorf("December %d length = %d, want %d", year, got, want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month Month
		want  int
	}{
		{2024, February, 29},
		{2023, February, 28},
		{1900, February, 28},
		{2000, February, 29},
		{2023, April, 30},
		{2023, December, 31},
	}

	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %v) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestPreconditionPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"year zero", func() { YearBaseDay(0) }},
		{"month too large", func() { MonthBaseDay(2024, 12) }},
		{"negative month", func() { DayOfWeek(2024, -1, 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
