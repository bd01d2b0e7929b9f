package slotgrid

import "time"

// Rule is one doctor's recurring availability on a named weekday, as
// supplied by the schedule provider. Times are "HH:MM" strings and are
// only parsed when the rule is actually used.
type Rule struct {
	Weekday string
	Start   string
	End     string
}

// ResolveRule finds the rule matching the date's weekday. Weekday names
// are the English identifiers from time.Weekday. If the provider holds
// more than one rule for the same weekday the first in supplied order
// wins; duplicates are an upstream data anomaly tolerated here rather
// than rejected.
func ResolveRule(rules []Rule, date time.Time) (Rule, bool) {
	weekday := date.Weekday().String()
	for _, r := range rules {
		if r.Weekday == weekday {
			return r, true
		}
	}
	return Rule{}, false
}
