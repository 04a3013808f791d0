package schedule

import (
	"strings"
	"testing"
)

func TestFindOverlapsNone(t *testing.T) {
	t.Parallel()

	schedules := []Schedule{
		{Days: mustDays(t, "0"), HourStart: 9, HourEnd: 12, Action: "a"},
		{Days: mustDays(t, "0"), HourStart: 12, HourEnd: 15, Action: "b"},
		{Days: mustDays(t, "1"), HourStart: 9, HourEnd: 12, Action: "a"},
	}
	if got := FindOverlaps(schedules); len(got) != 0 {
		t.Errorf("FindOverlaps = %v, want none", got)
	}
}

func TestFindOverlapsAdjacentHalfOpen(t *testing.T) {
	t.Parallel()

	// [9,12) and [12,15) share no slot; the boundary hour belongs to the
	// second window only.
	schedules := []Schedule{
		{Days: mustDays(t, "*"), HourStart: 9, HourEnd: 12, Action: "a"},
		{Days: mustDays(t, "*"), HourStart: 12, HourEnd: 15, Action: "b"},
	}
	if got := FindOverlaps(schedules); len(got) != 0 {
		t.Errorf("adjacent windows reported as overlapping: %v", got)
	}
}

func TestFindOverlapsReportsEverySlot(t *testing.T) {
	t.Parallel()

	schedules := []Schedule{
		{Days: mustDays(t, "0"), HourStart: 9, HourEnd: 12, Action: "a", Line: 1},
		{Days: mustDays(t, "0"), HourStart: 10, HourEnd: 13, Action: "b", Line: 2},
	}
	got := FindOverlaps(schedules)
	if len(got) != 2 {
		t.Fatalf("FindOverlaps = %v, want 2 conflicts", got)
	}
	if got[0].Slot != (Slot{0, 10}) || got[1].Slot != (Slot{0, 11}) {
		t.Errorf("conflict slots = %v,%v, want Monday 10 and 11", got[0].Slot, got[1].Slot)
	}
	for _, c := range got {
		if len(c.Schedules) != 2 {
			t.Errorf("conflict %v claims %v, want both schedules", c.Slot, c.Schedules)
		}
	}
}

func TestFindOverlapsMidnightWrapIntoNextDay(t *testing.T) {
	t.Parallel()

	// Sunday 23:00-02:00 wraps onto Monday morning, colliding with a plain
	// Monday window.
	schedules := []Schedule{
		{Days: mustDays(t, "6"), HourStart: 23, HourEnd: 2, SpansMidnight: true, Action: "night", Line: 1},
		{Days: mustDays(t, "0"), HourStart: 1, HourEnd: 3, Action: "morning", Line: 2},
	}
	got := FindOverlaps(schedules)
	if len(got) != 1 {
		t.Fatalf("FindOverlaps = %v, want 1 conflict", got)
	}
	if got[0].Slot != (Slot{0, 1}) {
		t.Errorf("conflict at %v, want Monday 01:00", got[0].Slot)
	}
}

func TestFindOverlapsThreeWay(t *testing.T) {
	t.Parallel()

	schedules := []Schedule{
		{Days: mustDays(t, "2"), HourStart: 8, HourEnd: 10, Action: "a"},
		{Days: mustDays(t, "2"), HourStart: 9, HourEnd: 11, Action: "b"},
		{Days: mustDays(t, "2"), HourStart: 9, HourEnd: 10, Action: "c"},
	}
	got := FindOverlaps(schedules)
	if len(got) != 2 {
		t.Fatalf("FindOverlaps = %v, want 2 conflicts", got)
	}
	if len(got[0].Schedules) != 3 {
		t.Errorf("slot %v has claimants %v, want all three", got[0].Slot, got[0].Schedules)
	}
}

func TestOverlapErrorMessage(t *testing.T) {
	t.Parallel()

	schedules := []Schedule{
		{Days: mustDays(t, "0"), HourStart: 9, HourEnd: 11, Action: "first", Line: 3},
		{Days: mustDays(t, "0"), HourStart: 10, HourEnd: 12, Action: "second", Line: 7},
	}
	err := &OverlapError{Schedules: schedules, Conflicts: FindOverlaps(schedules)}
	msg := err.Error()
	for _, want := range []string{"Monday 10:00", "line 3 (first)", "line 7 (second)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}
