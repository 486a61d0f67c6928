package reconcile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Grid day headings show up in several shapes depending on the page build:
// "Wednesday      (2026-02-25)", "Wednesday, February 25", a bare ISO date,
// or just a weekday name. Times are always "H:MM" 24h.
var (
	isoDateRe  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	monthDayRe = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})`)
	clockRe    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var weekdaysByName = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday}, {"tuesday", time.Tuesday}, {"wednesday", time.Wednesday},
	{"thursday", time.Thursday}, {"friday", time.Friday},
	{"saturday", time.Saturday}, {"sunday", time.Sunday},
}

// parseDayLabel resolves a raw grid day heading to midnight of that date in
// loc. An embedded ISO date or "Month day" wins; a bare weekday name resolves
// against the edition's start week via weekStart. Labels that carry no
// resolvable date are structurally malformed source data and yield an error.
func parseDayLabel(label string, year int, weekStart time.Time, loc *time.Location) (time.Time, error) {
	if m := isoDateRe.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc), nil
	}

	if m := monthDayRe.FindStringSubmatch(label); m != nil {
		mo := monthsByName[strings.ToLower(m[1])]
		d, _ := strconv.Atoi(m[2])
		return time.Date(year, mo, d, 0, 0, 0, 0, loc), nil
	}

	if d, ok := resolveWeekday(label, weekStart, loc); ok {
		return d, nil
	}

	return time.Time{}, fmt.Errorf("reconcile: unrecognized day label %q", label)
}

// resolveWeekday maps a weekday name inside the label to its date within the
// conference week beginning at weekStart. Without a configured start date a
// bare weekday is unresolvable.
func resolveWeekday(label string, weekStart time.Time, loc *time.Location) (time.Time, bool) {
	if weekStart.IsZero() {
		return time.Time{}, false
	}
	lower := strings.ToLower(label)
	for _, w := range weekdaysByName {
		if !strings.Contains(lower, w.name) {
			continue
		}
		offset := (int(w.day) - int(weekStart.Weekday()) + 7) % 7
		d := weekStart.AddDate(0, 0, offset)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

// parseClock parses "9:00" into hour and minute.
func parseClock(s string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("reconcile: unrecognized time %q", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("reconcile: time out of range %q", s)
	}
	return hour, minute, nil
}
