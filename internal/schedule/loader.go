package schedule

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Catalog is the name-existence check the loader runs against the registered
// actions. It is satisfied by *action.Registry.
type Catalog interface {
	Has(name string) bool
	Names() []string
}

// Load reads and validates a schedule file.
//
// The file is line oriented: blank lines and '#' comments are skipped, every
// other line must be exactly four whitespace-separated fields:
//
//	<day-spec> <hour-start> <hour-end> <action-name>
//
// Loading is all-or-nothing: the first malformed line, unknown action, or any
// overlap across the whole set aborts with no schedules returned.
func Load(path string, catalog Catalog) ([]Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schedule file: %w", err)
	}
	defer f.Close()
	return Parse(f, catalog)
}

// Parse is Load for an already-open reader.
func Parse(r io.Reader, catalog Catalog) ([]Schedule, error) {
	var schedules []Schedule

	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s, err := parseLine(line, lineNum, catalog)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}

	if conflicts := FindOverlaps(schedules); len(conflicts) > 0 {
		return nil, &OverlapError{Schedules: schedules, Conflicts: conflicts}
	}
	return schedules, nil
}

func parseLine(line string, lineNum int, catalog Catalog) (Schedule, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Schedule{}, fmt.Errorf("line %d: expected 4 fields (days hour-start hour-end action), got %d", lineNum, len(fields))
	}

	days, err := ParseDays(fields[0])
	if err != nil {
		return Schedule{}, fmt.Errorf("line %d: %w", lineNum, err)
	}

	hourStart, err := strconv.Atoi(fields[1])
	if err != nil {
		return Schedule{}, fmt.Errorf("line %d: invalid start hour %q", lineNum, fields[1])
	}
	hourEnd, err := strconv.Atoi(fields[2])
	if err != nil {
		return Schedule{}, fmt.Errorf("line %d: invalid end hour %q", lineNum, fields[2])
	}
	if hourStart < 0 || hourStart > 23 {
		return Schedule{}, fmt.Errorf("line %d: start hour %d out of range 0-23", lineNum, hourStart)
	}
	if hourEnd < 0 || hourEnd > 24 {
		return Schedule{}, fmt.Errorf("line %d: end hour %d out of range 0-24", lineNum, hourEnd)
	}

	// start >= end wraps past midnight; an equal pair is a full 24h wrap, so a
	// zero-length window cannot be expressed.
	spans := hourStart >= hourEnd

	name := fields[3]
	if !catalog.Has(name) {
		return Schedule{}, fmt.Errorf("line %d: unknown action %q (available: %s)",
			lineNum, name, strings.Join(catalog.Names(), ", "))
	}

	return Schedule{
		Days:          days,
		HourStart:     hourStart,
		HourEnd:       hourEnd,
		Action:        name,
		SpansMidnight: spans,
		Line:          lineNum,
	}, nil
}
