package calendar

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLayout(t *testing.T) {
	// July 2022 starts on a Friday and spans six week rows.
	l := Layout(CalendarDate{2022, July})

	if l.FirstWeekday != Friday {
		t.Errorf("FirstWeekday = %v, want Friday", l.FirstWeekday)
	}
	if l.Days != 31 {
		t.Errorf("Days = %d, want 31", l.Days)
	}
	if l.Name != "July 2022" {
		t.Errorf("Name = %q, want %q", l.Name, "July 2022")
	}
	if l.Weeks[0][Friday] != 1 || l.Weeks[0][Thursday] != 0 {
		t.Errorf("first week = %v, want day 1 on Friday", l.Weeks[0])
	}
	if l.Weeks[1][Sunday] != 3 {
		t.Errorf("Weeks[1][Sunday] = %d, want 3", l.Weeks[1][Sunday])
	}
	if l.Weeks[5][Sunday] != 31 {
		t.Errorf("Weeks[5][Sunday] = %d, want 31", l.Weeks[5][Sunday])
	}
	if l.UsedWeeks() != 6 {
		t.Errorf("UsedWeeks() = %d, want 6", l.UsedWeeks())
	}
}

func TestLayoutMatchesDayOfWeek(t *testing.T) {
	for _, cd := range []CalendarDate{{2015, February}, {2020, February}, {2024, September}, {1900, March}} {
		l := Layout(cd)
		count := 0
		for w := range l.Weeks {
			for d, day := range l.Weeks[w] {
				if day == 0 {
					continue
				}
				count++
				if got := cd.DayOfWeek(day); got != Weekday(d) {
					t.Errorf("%v day %d in column %v, DayOfWeek = %v", cd, day, Weekday(d), got)
				}
				week, wd, ok := l.Position(day)
				if !ok || week != w || wd != Weekday(d) {
					t.Errorf("%v Position(%d) = (%d, %v, %v), want (%d, %v, true)", cd, day, week, wd, ok, w, Weekday(d))
				}
			}
		}
		if count != cd.DaysInMonth() {
			t.Errorf("%v layout holds %d days, want %d", cd, count, cd.DaysInMonth())
		}
	}
}

func TestLayoutFourWeekFebruary(t *testing.T) {
	// February 2015 starts on a Sunday and fills exactly four rows.
	l := Layout(CalendarDate{2015, February})
	if l.UsedWeeks() != 4 {
		t.Errorf("UsedWeeks() = %d, want 4", l.UsedWeeks())
	}
	if _, _, ok := l.Position(29); ok {
		t.Error("Position(29) ok for February 2015")
	}
}

func TestYearLayout(t *testing.T) {
	layouts := YearLayout(2024)
	if len(layouts) != 12 {
		t.Fatalf("YearLayout() returned %d months, want 12", len(layouts))
	}
	total := 0
	for i, l := range layouts {
		if l.Date.Month != Month(i) {
			t.Errorf("layout %d month = %v", i, l.Date.Month)
		}
		total += l.Days
	}
	if total != 366 {
		t.Errorf("total days = %d, want 366", total)
	}
}

func TestNextPrev(t *testing.T) {
	tests := []struct {
		cd   CalendarDate
		next CalendarDate
		prev CalendarDate
	}{
		{CalendarDate{2022, July}, CalendarDate{2022, August}, CalendarDate{2022, June}},
		{CalendarDate{2022, December}, CalendarDate{2023, January}, CalendarDate{2022, November}},
		{CalendarDate{2023, January}, CalendarDate{2023, February}, CalendarDate{2022, December}},
	}

	for _, tt := range tests {
		if got := tt.cd.Next(); got != tt.next {
			t.Errorf("%v.Next() = %v, want %v", tt.cd, got, tt.next)
		}
		if got := tt.cd.Prev(); got != tt.prev {
			t.Errorf("%v.Prev() = %v, want %v", tt.cd, got, tt.prev)
		}
	}

	s := Surrounding(CalendarDate{2023, January})
	want := [3]CalendarDate{{2022, December}, {2023, January}, {2023, February}}
	if s != want {
		t.Errorf("Surrounding() = %v, want %v", s, want)
	}
	if !s[0].Before(s[1]) || s[2].Before(s[1]) {
		t.Errorf("Before() ordering wrong for %v", s)
	}
}

func TestNames(t *testing.T) {
	if got := September.String(); got != "September" {
		t.Errorf("September.String() = %q", got)
	}
	if got := September.Short(); got != "Sep" {
		t.Errorf("September.Short() = %q", got)
	}
	if got := Wednesday.Short(); got != "Wed" {
		t.Errorf("Wednesday.Short() = %q", got)
	}
	if got := Month(12).String(); got != "Month(12)" {
		t.Errorf("Month(12).String() = %q", got)
	}
}

func TestWeekdayJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Day Weekday `json:"day"`
	}{Tuesday})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"day":"Tuesday"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var out struct {
		Day Weekday `json:"day"`
	}
	if err := json.Unmarshal([]byte(`{"day":"sat"}`), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Day != Saturday {
		t.Errorf("Unmarshal() day = %v, want Saturday", out.Day)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    CalendarDate
		wantDay int
		wantErr error
	}{
		{"2022-07-03", CalendarDate{2022, July}, 3, nil},
		{"2024-02-29", CalendarDate{2024, February}, 29, nil},
		{" 1970-01-01 ", CalendarDate{1970, January}, 1, nil},
		{"2023-02-29", CalendarDate{}, 0, ErrDayOutOfRange},
		{"2023-13-01", CalendarDate{}, 0, ErrMonthOutOfRange},
		{"0000-01-01", CalendarDate{}, 0, ErrYearOutOfRange},
		{"2023-1-1", CalendarDate{}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cd, day, err := ParseDate(tt.input)
			if tt.want == (CalendarDate{}) {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error", tt.input)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseDate(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if cd != tt.want || day != tt.wantDay {
				t.Errorf("ParseDate(%q) = %v %d, want %v %d", tt.input, cd, day, tt.want, tt.wantDay)
			}
			if got := FormatDate(cd.Year, cd.Month, day); got != strings.TrimSpace(tt.input) {
				t.Errorf("FormatDate() = %q, want %q", got, strings.TrimSpace(tt.input))
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	first, last := MonthRange(CalendarDate{2024, February})
	if first != "2024-02-01" || last != "2024-02-29" {
		t.Errorf("MonthRange() = %q, %q", first, last)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input   string
		want    Month
		wantErr bool
	}{
		{"1", January, false},
		{"12", December, false},
		{"feb", February, false},
		{"September", September, false},
		{"ju", 0, true},
		{"13", 0, true},
		{"0", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMonth(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMonth(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseMonth(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
