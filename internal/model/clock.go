package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ClockInputLayout is the layout accepted from callers.  Hour and minute
	// take one or two digits, so "9:5" reads as 09:05.
	ClockInputLayout = "15:4"
	// ClockStoredLayout is the layout used in the database and in responses.
	ClockStoredLayout = "15:04:05"

	secondsPerDay = 24 * 60 * 60
)

// ClockTime is a wall-clock time of day with second precision, counted in
// seconds since midnight.  It carries no date and no location.  Slot times
// and block time durations are both ClockTime values.
type ClockTime int

// NewClock builds a ClockTime from its components.  Values outside the
// valid ranges are normalised modulo one day.
func NewClock(hour, minute, second int) ClockTime {
	return normalise(hour*3600 + minute*60 + second)
}

// ParseError reports a malformed time-of-day string.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected HH:MM", e.Field, e.Value)
}

// ParseClock parses caller input in HH:MM form.  Seconds default to zero.
// field names the input in the returned *ParseError.
func ParseClock(field, value string) (ClockTime, error) {
	t, err := time.Parse(ClockInputLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, &ParseError{Field: field, Value: value}
	}
	return NewClock(t.Hour(), t.Minute(), 0), nil
}

// ParseStoredClock parses a persisted HH:MM:SS column value.
func ParseStoredClock(value string) (ClockTime, error) {
	t, err := time.Parse(ClockStoredLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return NewClock(t.Hour(), t.Minute(), t.Second()), nil
}

func (c ClockTime) Hour() int   { return int(c) / 3600 }
func (c ClockTime) Minute() int { return int(c) % 3600 / 60 }
func (c ClockTime) Second() int { return int(c) % 60 }

// String formats the value as HH:MM:SS.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// Add shifts the time by the given number of minutes and re-extracts the
// time of day, so 00:10 minus 30 minutes is 23:40.  Callers that build a
// range from two shifted values must expect lo > hi around midnight.
func (c ClockTime) Add(minutes int) ClockTime {
	return normalise(int(c) + minutes*60)
}

// HourBounds returns the first and last second of the clock hour c falls in.
func (c ClockTime) HourBounds() (ClockTime, ClockTime) {
	return NewClock(c.Hour(), 0, 0), NewClock(c.Hour(), 59, 59)
}

// MarshalText lets ClockTime travel as "HH:MM:SS" in JSON.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func normalise(sec int) ClockTime {
	sec %= secondsPerDay
	if sec < 0 {
		sec += secondsPerDay
	}
	return ClockTime(sec)
}
