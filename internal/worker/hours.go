package worker

import (
	"fmt"
	"time"
)

// Hours is an operating-hours window evaluated in a named time zone.
// The zero value (no timezone, no bounds) means always on.
type Hours struct {
	// Timezone is an IANA zone name, e.g. "Europe/London". Empty means UTC.
	Timezone string `yaml:"timezone"`
	// Start is the opening time as "HH:MM". Empty means no lower bound.
	Start string `yaml:"start"`
	// End is the closing time as "HH:MM". Empty means no upper bound.
	End string `yaml:"end"`
	// Days lists active weekdays ("mon".."sun"). Empty means every day.
	Days []string `yaml:"days"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// Contains reports whether now falls inside the window. Malformed fields
// fail open: an unparseable window never takes a worker offline.
func (h Hours) Contains(now time.Time) bool {
	if h.Timezone != "" {
		if loc, err := time.LoadLocation(h.Timezone); err == nil {
			now = now.In(loc)
		}
	}

	if len(h.Days) > 0 {
		ok := false
		for _, d := range h.Days {
			if wd, known := weekdays[d]; known && wd == now.Weekday() {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	minutes := now.Hour()*60 + now.Minute()
	if h.Start != "" {
		if start, err := parseClock(h.Start); err == nil && minutes < start {
			return false
		}
	}
	if h.End != "" {
		if end, err := parseClock(h.End); err == nil && minutes >= end {
			return false
		}
	}
	return true
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return hh*60 + mm, nil
}
