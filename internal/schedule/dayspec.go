package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// DaySet is a set of weekdays, 0 = Monday .. 6 = Sunday.
type DaySet uint8

const allDays DaySet = 0x7f

func (d DaySet) Has(day int) bool { return day >= 0 && day <= 6 && d&(1<<uint(day)) != 0 }

func (d *DaySet) add(day int) { *d |= 1 << uint(day) }

func (d DaySet) Count() int {
	n := 0
	for day := 0; day <= 6; day++ {
		if d.Has(day) {
			n++
		}
	}
	return n
}

// Days returns the member weekdays in ascending order.
func (d DaySet) Days() []int {
	out := make([]int, 0, 7)
	for day := 0; day <= 6; day++ {
		if d.Has(day) {
			out = append(out, day)
		}
	}
	return out
}

func (d DaySet) String() string {
	if d == allDays {
		return "*"
	}
	parts := make([]string, 0, 7)
	for _, day := range d.Days() {
		parts = append(parts, strconv.Itoa(day))
	}
	return strings.Join(parts, ",")
}

// ParseDays parses a weekday specification into a DaySet.
//
// Grammar: "*" for all seven days, or a comma-separated list where each
// component is a single digit 0-6 or a range "a-b" with a <= b. The result is
// deduplicated and order-independent. Any invalid component fails the whole
// parse; no partial set is returned.
func ParseDays(spec string) (DaySet, error) {
	if spec == "*" {
		return allDays, nil
	}

	var set DaySet
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		lo, hi, ok := strings.Cut(part, "-")
		if ok {
			start, err := parseDay(lo)
			if err != nil {
				return 0, fmt.Errorf("day range %q: %w", part, err)
			}
			end, err := parseDay(hi)
			if err != nil {
				return 0, fmt.Errorf("day range %q: %w", part, err)
			}
			if start > end {
				return 0, fmt.Errorf("day range %q: start after end", part)
			}
			for day := start; day <= end; day++ {
				set.add(day)
			}
			continue
		}
		day, err := parseDay(part)
		if err != nil {
			return 0, err
		}
		set.add(day)
	}
	if set == 0 {
		return 0, fmt.Errorf("day spec %q: empty", spec)
	}
	return set, nil
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid day %q", s)
	}
	if day < 0 || day > 6 {
		return 0, fmt.Errorf("day %d out of range 0-6", day)
	}
	return day, nil
}
