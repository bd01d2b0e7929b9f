package handlers

import (
	"strconv"

	"github.com/medhelp-app/medhelp/services/directory-service/internal/storage"
)

// minBlockMinutes is the smallest availability window a doctor may
// publish. Anything shorter cannot hold two booking slots and almost
// always indicates a typo.
const minBlockMinutes = 60

var weekdayNames = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
	"Sunday":    true,
}

// validateRules checks a full weekly schedule before it is stored.
// Returns an empty string when valid, otherwise a stable error code.
func validateRules(rules []storage.AvailabilityRule) string {
	if len(rules) == 0 {
		return "rules_required"
	}
	seen := map[string]bool{}
	for _, r := range rules {
		if !weekdayNames[r.Weekday] {
			return "invalid_weekday"
		}
		if seen[r.Weekday] {
			return "duplicate_weekday"
		}
		seen[r.Weekday] = true

		start, ok := parseMinutes(r.StartTime)
		if !ok {
			return "invalid_start_time"
		}
		end, ok := parseMinutes(r.EndTime)
		if !ok {
			return "invalid_end_time"
		}
		if start >= end {
			return "start_not_before_end"
		}
		if end-start < minBlockMinutes {
			return "window_too_short"
		}
	}
	return ""
}

// parseMinutes parses a strict zero-padded "HH:MM" into minutes since
// midnight. Stored times must round-trip exactly so the booking side
// never sees a value it cannot parse.
func parseMinutes(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[3:5])
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatFee(fee float64) string {
	return strconv.FormatFloat(fee, 'f', 2, 64)
}
