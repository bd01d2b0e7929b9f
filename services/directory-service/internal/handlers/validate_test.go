package handlers

import (
	"testing"

	"github.com/medhelp-app/medhelp/services/directory-service/internal/storage"
)

func rule(day, start, end string) storage.AvailabilityRule {
	return storage.AvailabilityRule{Weekday: day, StartTime: start, EndTime: end}
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name  string
		rules []storage.AvailabilityRule
		want  string
	}{
		{"valid single day", []storage.AvailabilityRule{rule("Monday", "09:00", "11:00")}, ""},
		{"valid full week", []storage.AvailabilityRule{
			rule("Monday", "09:00", "17:00"),
			rule("Tuesday", "09:00", "17:00"),
			rule("Wednesday", "13:30", "18:00"),
		}, ""},
		{"empty", nil, "rules_required"},
		{"unknown weekday", []storage.AvailabilityRule{rule("Funday", "09:00", "11:00")}, "invalid_weekday"},
		{"lowercase weekday", []storage.AvailabilityRule{rule("monday", "09:00", "11:00")}, "invalid_weekday"},
		{"duplicate weekday", []storage.AvailabilityRule{
			rule("Monday", "09:00", "11:00"),
			rule("Monday", "13:00", "15:00"),
		}, "duplicate_weekday"},
		{"bad start", []storage.AvailabilityRule{rule("Monday", "9:00", "11:00")}, "invalid_start_time"},
		{"bad end", []storage.AvailabilityRule{rule("Monday", "09:00", "25:00")}, "invalid_end_time"},
		{"start after end", []storage.AvailabilityRule{rule("Monday", "11:00", "09:00")}, "start_not_before_end"},
		{"start equals end", []storage.AvailabilityRule{rule("Monday", "09:00", "09:00")}, "start_not_before_end"},
		{"window under an hour", []storage.AvailabilityRule{rule("Monday", "09:00", "09:45")}, "window_too_short"},
		{"exactly an hour", []storage.AvailabilityRule{rule("Monday", "09:00", "10:00")}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validateRules(tc.rules); got != tc.want {
				t.Errorf("validateRules = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"0910", 0, false},
		{"+9:30", 0, false},
		{"09:3a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseMinutes(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parseMinutes(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
