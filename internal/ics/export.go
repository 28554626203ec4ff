package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/zapponejosh/calendar-api/internal/database"
)

// ProductID identifies exported documents.
const ProductID = "-//zapponejosh//calendar-api//EN"

// Export renders events as a VCALENDAR document. Events without a start
// time become all-day events; timed events are read as wall clock times
// in loc (nil means time.Local). Events with an unreadable date are left out.
func Export(events []database.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, e := range events {
		day, err := time.ParseInLocation("2006-01-02", e.Date, loc)
		if err != nil {
			continue
		}

		ve := cal.AddEvent(exportUID(e))
		ve.SetSummary(e.Title)
		if e.Description != nil {
			ve.SetDescription(*e.Description)
		}
		if !e.UpdatedAt.IsZero() {
			ve.SetDtStampTime(e.UpdatedAt)
		} else {
			ve.SetDtStampTime(time.Now())
		}

		if e.StartTime == nil {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}

		clock, err := time.Parse("15:04", *e.StartTime)
		if err != nil {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		end := start
		if e.DurationMinutes != nil {
			end = start.Add(time.Duration(*e.DurationMinutes) * time.Minute)
		}
		ve.SetStartAt(start)
		ve.SetEndAt(end)
	}

	return cal.Serialize()
}

func exportUID(e database.Event) string {
	if e.ExternalID != nil {
		return *e.ExternalID
	}
	return fmt.Sprintf("event-%d@calendar-api", e.ID)
}
