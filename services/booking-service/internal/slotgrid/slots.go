package slotgrid

import "time"

// Bookable computes the open slot start times for one doctor and date:
// resolve the weekday rule, expand it into the slot grid, subtract the
// already-booked starts. No matching rule or an interval shorter than
// one slot yields an empty list. A rule or booked value that fails to
// parse returns an error wrapping ErrMalformedTime.
func Bookable(rules []Rule, date time.Time, booked []string, step int) ([]string, error) {
	rule, ok := ResolveRule(rules, date)
	if !ok {
		return nil, nil
	}

	start, err := ParseClock(rule.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(rule.End)
	if err != nil {
		return nil, err
	}

	taken := make([]Clock, 0, len(booked))
	for _, b := range booked {
		c, err := ParseClock(b)
		if err != nil {
			return nil, err
		}
		taken = append(taken, c)
	}

	open := Subtract(Grid(start, end, step), taken)
	out := make([]string, 0, len(open))
	for _, s := range open {
		out = append(out, s.String())
	}
	return out, nil
}

// Contains reports whether slot is one of the open slots for the given
// rules, date and booked set. Used to validate a booking request's
// chosen slot against the grid before it is written.
func Contains(rules []Rule, date time.Time, booked []string, step int, slot string) (bool, error) {
	open, err := Bookable(rules, date, booked, step)
	if err != nil {
		return false, err
	}
	for _, s := range open {
		if s == slot {
			return true, nil
		}
	}
	return false, nil
}
