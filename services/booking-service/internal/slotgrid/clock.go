// Package slotgrid turns a doctor's weekly availability rules into the
// discrete 30-minute slots a patient can book on a given date. All time
// arithmetic is integer minutes since midnight; wall-clock strings only
// appear at the edges.
package slotgrid

import (
	"errors"
	"fmt"
)

// SlotMinutes is the booking granularity. Every offered slot starts on
// a multiple of this step relative to the rule's start time.
const SlotMinutes = 30

// ErrMalformedTime marks schedule data that cannot be parsed into a
// valid time of day. It is distinct from "no availability": an empty
// slot list is a normal result, a malformed rule is corrupt data.
var ErrMalformedTime = errors.New("malformed time of day")

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses a strict zero-padded 24-hour "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return Clock(h*60 + m), nil
}

// String renders the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether c is a representable time of day.
func (c Clock) Valid() bool {
	return c >= 0 && c < 24*60
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
