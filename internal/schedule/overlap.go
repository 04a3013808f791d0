package schedule

import (
	"fmt"
	"sort"
	"strings"
)

// Conflict records one grid slot claimed by two or more schedules.
// Schedules holds the indices (into the validated list) of every claimant.
type Conflict struct {
	Slot      Slot
	Schedules []int
}

// FindOverlaps builds the full slot-occupancy map for the given list and
// returns every slot with more than one claimant, ordered by day then hour.
// The input is not mutated. An empty result means the set is conflict-free.
func FindOverlaps(schedules []Schedule) []Conflict {
	claims := make(map[Slot][]int)
	for idx, s := range schedules {
		for _, slot := range s.Slots() {
			claims[slot] = append(claims[slot], idx)
		}
	}

	var out []Conflict
	for slot, idxs := range claims {
		if len(idxs) > 1 {
			out = append(out, Conflict{Slot: slot, Schedules: idxs})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot.Day != out[j].Slot.Day {
			return out[i].Slot.Day < out[j].Slot.Day
		}
		return out[i].Slot.Hour < out[j].Slot.Hour
	})
	return out
}

// OverlapError reports every conflicting slot found in a schedule set, with
// the schedules involved, so the operator can fix all collisions in one pass.
type OverlapError struct {
	Schedules []Schedule
	Conflicts []Conflict
}

func (e *OverlapError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d overlapping slot(s):", len(e.Conflicts))
	for _, c := range e.Conflicts {
		names := make([]string, 0, len(c.Schedules))
		for _, idx := range c.Schedules {
			names = append(names, fmt.Sprintf("line %d (%s)", e.Schedules[idx].Line, e.Schedules[idx].Action))
		}
		fmt.Fprintf(&b, "\n  %s: %s", c.Slot, strings.Join(names, ", "))
	}
	return b.String()
}
