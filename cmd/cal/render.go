package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zapponejosh/calendar-api/internal/calendar"
)

// monthWidth is the printed width of one month block.
const monthWidth = 20

const columnGap = "  "

var weekdayHeader = func() string {
	names := make([]string, 7)
	for d := calendar.Sunday; d <= calendar.Saturday; d++ {
		names[d] = d.Short()[:2]
	}
	return strings.Join(names, " ")
}()

// monthLines renders a month as a title, the weekday header and one line
// per week row of the layout.
func monthLines(l calendar.MonthLayout, title string) []string {
	lines := make([]string, 0, 2+calendar.WeeksPerLayout)
	lines = append(lines, center(title, monthWidth), weekdayHeader)

	for _, week := range l.Weeks {
		var b strings.Builder
		for i, day := range week {
			if i > 0 {
				b.WriteByte(' ')
			}
			if day == 0 {
				b.WriteString("  ")
				continue
			}
			fmt.Fprintf(&b, "%2d", day)
		}
		lines = append(lines, b.String())
	}
	return lines
}

// center pads s with spaces to width, biased left.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

// joinBlocks prints equally tall blocks side by side.
func joinBlocks(b *strings.Builder, blocks [][]string) {
	if len(blocks) == 0 {
		return
	}
	for row := range blocks[0] {
		parts := make([]string, len(blocks))
		for i, block := range blocks {
			parts[i] = block[row]
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, columnGap), " "))
		b.WriteByte('\n')
	}
}

// renderMonths prints the given months side by side, each titled with its
// month and year.
func renderMonths(months []calendar.CalendarDate) string {
	blocks := make([][]string, 0, len(months))
	for _, cd := range months {
		blocks = append(blocks, monthLines(calendar.Layout(cd), cd.String()))
	}
	var b strings.Builder
	joinBlocks(&b, blocks)
	return b.String()
}

// renderYear prints a year as four rows of three months under a centered
// year heading.
func renderYear(year int) string {
	var b strings.Builder
	width := 3*monthWidth + 2*len(columnGap)
	b.WriteString(strings.TrimRight(center(strconv.Itoa(year), width), " "))
	b.WriteString("\n\n")

	layouts := calendar.YearLayout(year)
	for row := 0; row < 4; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		blocks := make([][]string, 0, 3)
		for _, l := range layouts[row*3 : row*3+3] {
			blocks = append(blocks, monthLines(l, l.Date.Month.String()))
		}
		joinBlocks(&b, blocks)
	}
	return b.String()
}

// view is what the root command prints.
type view struct {
	wholeYear bool
	cd        calendar.CalendarDate
}

// render returns the text for v: the whole year, the month alone when
// single is set, or the month between its neighbours.
func (v view) render(single bool) string {
	switch {
	case v.wholeYear:
		return renderYear(v.cd.Year)
	case single:
		return renderMonths([]calendar.CalendarDate{v.cd})
	}

	months := make([]calendar.CalendarDate, 0, 3)
	for _, cd := range calendar.Surrounding(v.cd) {
		if cd.Year >= 1 {
			months = append(months, cd)
		}
	}
	return renderMonths(months)
}

// parseView interprets the positional arguments of the root command.
//
// A first argument above 12 is a year; alone it selects the whole year
// unless it is the current one. A first argument of 1 to 12, or a month
// name, selects that month of the current year. A second argument is the
// month of the given year.
func parseView(args []string, wholeYear bool, today calendar.CalendarDate, v calendar.Validator) (view, error) {
	out := view{wholeYear: wholeYear, cd: today}
	if len(args) == 0 {
		return out, nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || (n >= 1 && n <= 12) {
		if len(args) > 1 {
			return out, fmt.Errorf("unexpected argument %q after month", args[1])
		}
		m, err := calendar.ParseMonth(args[0])
		if err != nil {
			return out, fmt.Errorf("invalid year or month %q", args[0])
		}
		out.cd.Month = m
		return out, nil
	}
	if n < 1 {
		return out, fmt.Errorf("month must be between 1 and 12, got %d", n)
	}

	if err := v.ValidateYear(n); err != nil {
		return out, err
	}
	out.cd.Year = n

	if len(args) == 2 {
		m, err := calendar.ParseMonth(args[1])
		if err != nil {
			return out, fmt.Errorf("month must be between 1 and 12 or a month name: %w", err)
		}
		out.cd.Month = m
		return out, nil
	}
	if n != today.Year {
		out.wholeYear = true
	}
	return out, nil
}
