package schedule

import (
	"fmt"
	"time"
)

// Schedule maps one recurring weekly time window to a named action.
//
// Hours are half-open: [HourStart, HourEnd) within a day. When SpansMidnight
// is set the window wraps, covering [HourStart, 24) on each listed day plus
// [0, HourEnd) on the following day.
//
// A Schedule is built once by the loader and never mutated afterwards; on a
// reload the whole set is replaced.
type Schedule struct {
	Days      DaySet
	HourStart int
	HourEnd   int
	Action    string

	// SpansMidnight is derived at load time: HourStart >= HourEnd.
	SpansMidnight bool

	// Line is the 1-based config line this schedule came from, kept for
	// diagnostics.
	Line int
}

func (s Schedule) String() string {
	return fmt.Sprintf("days %s: %02d:00-%02d:00 -> %s", s.Days, s.HourStart, s.HourEnd, s.Action)
}

// WeekdayIndex maps t's weekday to the 0=Monday .. 6=Sunday convention used
// throughout this package.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ActiveAt reports whether the window covers the given instant.
func (s Schedule) ActiveAt(t time.Time) bool {
	day := WeekdayIndex(t)
	hour := t.Hour()

	if !s.SpansMidnight {
		return s.Days.Has(day) && s.HourStart <= hour && hour < s.HourEnd
	}

	// Late hours of a listed day, or early hours of the day after one.
	if s.Days.Has(day) && hour >= s.HourStart {
		return true
	}
	prev := (day + 6) % 7
	return s.Days.Has(prev) && hour < s.HourEnd
}

// Slot is one (weekday, hour) cell of the 7x24 weekly grid.
type Slot struct {
	Day  int
	Hour int
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (sl Slot) String() string {
	return fmt.Sprintf("%s %02d:00", dayNames[sl.Day], sl.Hour)
}

// Slots returns every grid cell the window occupies. For midnight-spanning
// windows the early hours land on the day after each listed day.
func (s Schedule) Slots() []Slot {
	var out []Slot
	for _, day := range s.Days.Days() {
		if s.SpansMidnight {
			for h := s.HourStart; h < 24; h++ {
				out = append(out, Slot{Day: day, Hour: h})
			}
			next := (day + 1) % 7
			for h := 0; h < s.HourEnd; h++ {
				out = append(out, Slot{Day: next, Hour: h})
			}
			continue
		}
		for h := s.HourStart; h < s.HourEnd; h++ {
			out = append(out, Slot{Day: day, Hour: h})
		}
	}
	return out
}
