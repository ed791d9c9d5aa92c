package models

import (
	"fmt"
	"strconv"
	"time"
)

// DayLayout is the calendar day format used in forms and query strings.
const DayLayout = "2006-01-02"

// Midnight returns the UTC start of the calendar day of t, taken in t's own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the UTC day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return Midnight(t.UTC()), nil
}

// Today returns the current UTC day.
func Today() time.Time { return Midnight(time.Now().UTC()) }

func uintString(id uint) string { return strconv.FormatUint(uint64(id), 10) }
