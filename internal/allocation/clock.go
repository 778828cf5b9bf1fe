package allocation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date form used on the wire and in batch files.
const DateLayout = "2006-01-02"

// parseClock converts "HH:MM" into minutes after midnight.
func parseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q has an invalid hour", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q has invalid minutes", raw)
	}
	return h*60 + m, nil
}

// timesOverlap is the half-open test start < otherEnd && end > otherStart.
// Unparseable bounds never overlap.
func timesOverlap(start, end, otherStart, otherEnd string) bool {
	s, err1 := parseClock(start)
	e, err2 := parseClock(end)
	os, err3 := parseClock(otherStart)
	oe, err4 := parseClock(otherEnd)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return s < oe && e > os
}

// datesOverlap treats both ranges as inclusive calendar days.
func datesOverlap(start, end, otherStart, otherEnd time.Time) bool {
	return !dayOf(start).After(dayOf(otherEnd)) && !dayOf(end).Before(dayOf(otherStart))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
