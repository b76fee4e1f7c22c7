package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for report keys and the
// log store API.
const DateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an event timestamp, trying the formats commonly
// emitted by shippers (RFC3339 with and without zone/fraction).
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// ParseDate parses a YYYY-MM-DD day in the given location, anchored at
// midnight.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return t, nil
}

// HourOfDay returns the 0-23 hour bucket of a timestamp in the reference
// timezone.
func HourOfDay(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Hour()
}
