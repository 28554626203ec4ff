package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// RangeStart and RangeEnd bound the occurrences as a half-open
	// interval: an instance ending at RangeStart or starting at RangeEnd
	// is outside it.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps each recurring event. Zero means 5000.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a parsed event.
type Occurrence struct {
	FeedID      string
	UID         string
	Summary     string
	Description string
	Start       time.Time
	Duration    time.Duration
	AllDay      bool
}

// ExpandResult holds the expanded occurrences sorted by start time.
type ExpandResult struct {
	Occurrences []Occurrence
	// Truncated lists UIDs that hit MaxOccurrencesPerEvent.
	Truncated []string
	// Invalid lists UIDs whose RRULE could not be parsed.
	Invalid []string
}

// Expand turns parsed events into occurrences within the configured
// range. Recurring events are expanded through their RRULE with EXDATEs
// removed, and RECURRENCE-ID overrides replace the instance they name.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	for _, ev := range events {
		if ev.IsOverride() {
			continue
		}
		if ev.RRule == "" {
			if overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
				result.Occurrences = append(result.Occurrences, occurrence(ev, ev.Start))
			}
			continue
		}

		occ, hitCap, err := expandRecurring(ev, overrides[ev.UID], cfg)
		if err != nil {
			result.Invalid = append(result.Invalid, ev.UID)
			continue
		}
		if hitCap {
			result.Truncated = append(result.Truncated, ev.UID)
		}
		result.Occurrences = append(result.Occurrences, occ...)
	}

	// Overrides whose base event is missing still describe a real instance.
	for uid, ovs := range overrides {
		if hasBase(events, uid) {
			continue
		}
		for _, ov := range ovs {
			if overlaps(ov.Start, ov.End, cfg.RangeStart, cfg.RangeEnd) {
				result.Occurrences = append(result.Occurrences, occurrence(ov, ov.Start))
			}
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, false, fmt.Errorf("parse RRULE %q: %w", ev.RRule, err)
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the window by the event length so that instances which start
	// before RangeStart but are still running are included.
	dur := ev.End.Sub(ev.Start)
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())

	var times []time.Time
	for _, t := range set.Between(from, to, true) {
		if overlaps(t, t.Add(dur), cfg.RangeStart, cfg.RangeEnd) {
			times = append(times, t)
		}
	}
	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(times))
	for _, t := range times {
		if o, ok := findOverride(overrides, t); ok {
			out = append(out, occurrence(o, o.Start))
			continue
		}
		out = append(out, occurrence(ev, t))
	}
	return out, hitCap, nil
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.RecurrenceID != nil && ov.RecurrenceID.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func hasBase(events []ParsedEvent, uid string) bool {
	for _, ev := range events {
		if ev.UID == uid && !ev.IsOverride() {
			return true
		}
	}
	return false
}

func occurrence(ev ParsedEvent, start time.Time) Occurrence {
	return Occurrence{
		FeedID:      ev.FeedID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       start,
		Duration:    ev.End.Sub(ev.Start),
		AllDay:      ev.AllDay,
	}
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
// A zero-length event counts when its start lies in the range.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
