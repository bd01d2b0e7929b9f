package slotgrid

import (
	"errors"
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"9:00", 0, true},
		{"09-00", 0, true},
		{"09:0a", 0, true},
		{"", 0, true},
		{"banana", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tc.in)
			} else if !errors.Is(err, ErrMalformedTime) {
				t.Errorf("ParseClock(%q): error %v does not wrap ErrMalformedTime", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClockString(t *testing.T) {
	cases := []struct {
		in   Clock
		want string
	}{
		{0, "00:00"},
		{540, "09:00"},
		{570, "09:30"},
		{1439, "23:59"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Clock(%d).String() = %q, want %q", int(tc.in), got, tc.want)
		}
	}
}

func TestGrid(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{"two hour window", "09:00", "11:00", []string{"09:00", "09:30", "10:00", "10:30"}},
		{"partial trailing slot dropped", "09:00", "10:45", []string{"09:00", "09:30", "10:00"}},
		{"shorter than one slot", "09:00", "09:15", nil},
		{"start equals end", "09:00", "09:00", nil},
		{"start after end", "11:00", "09:00", nil},
		{"single slot", "09:00", "09:30", []string{"09:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := mustClock(t, tc.start)
			end := mustClock(t, tc.end)
			got := Grid(start, end, SlotMinutes)
			assertSlots(t, got, tc.want)
		})
	}
}

func TestGridProperties(t *testing.T) {
	starts := []Clock{0, 510, 540, 725, 1380}
	ends := []Clock{0, 540, 555, 660, 1440 - 30}
	for _, start := range starts {
		for _, end := range ends {
			got := Grid(start, end, SlotMinutes)
			if start >= end {
				if len(got) != 0 {
					t.Errorf("Grid(%d, %d): expected empty, got %v", start, end, got)
				}
				continue
			}
			wantCount := int(end-start) / SlotMinutes
			if len(got) != wantCount {
				t.Errorf("Grid(%d, %d): count = %d, want %d", start, end, len(got), wantCount)
			}
			for _, s := range got {
				if s < start || s+SlotMinutes > end {
					t.Errorf("Grid(%d, %d): slot %d outside interval", start, end, s)
				}
			}
			again := Grid(start, end, SlotMinutes)
			if len(again) != len(got) {
				t.Errorf("Grid(%d, %d): not deterministic", start, end)
			}
		}
	}
}

func TestResolveRule(t *testing.T) {
	rules := []Rule{
		{Weekday: "Tuesday", Start: "10:00", End: "12:00"},
		{Weekday: "Monday", Start: "09:00", End: "11:00"},
		{Weekday: "Monday", Start: "14:00", End: "16:00"},
	}

	rule, ok := ResolveRule(rules, monday)
	if !ok {
		t.Fatal("expected a Monday rule")
	}
	// Duplicate weekday rules: first in supplied order wins.
	if rule.Start != "09:00" || rule.End != "11:00" {
		t.Fatalf("expected first Monday rule, got %+v", rule)
	}

	sunday := monday.AddDate(0, 0, -1)
	if _, ok := ResolveRule(rules, sunday); ok {
		t.Fatal("expected no rule for Sunday")
	}
	if _, ok := ResolveRule(nil, monday); ok {
		t.Fatal("expected no rule from empty rule set")
	}
}

func TestBookable(t *testing.T) {
	mondayRule := []Rule{{Weekday: "Monday", Start: "09:00", End: "11:00"}}

	cases := []struct {
		name   string
		rules  []Rule
		date   time.Time
		booked []string
		want   []string
	}{
		{
			name:  "full grid when nothing booked",
			rules: mondayRule,
			date:  monday,
			want:  []string{"09:00", "09:30", "10:00", "10:30"},
		},
		{
			name:   "booked slots removed in order",
			rules:  mondayRule,
			date:   monday,
			booked: []string{"09:30", "10:30"},
			want:   []string{"09:00", "10:00"},
		},
		{
			name:  "interval shorter than one slot",
			rules: []Rule{{Weekday: "Monday", Start: "09:00", End: "09:15"}},
			date:  monday,
			want:  nil,
		},
		{
			name:   "no rule for weekday",
			rules:  mondayRule,
			date:   monday.AddDate(0, 0, 1),
			booked: []string{"09:00"},
			want:   nil,
		},
		{
			name:   "fully booked",
			rules:  []Rule{{Weekday: "Monday", Start: "09:00", End: "10:00"}},
			date:   monday,
			booked: []string{"09:00", "09:30"},
			want:   nil,
		},
		{
			name:   "booked slot outside grid ignored",
			rules:  mondayRule,
			date:   monday,
			booked: []string{"08:00", "09:30"},
			want:   []string{"09:00", "10:00", "10:30"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Bookable(tc.rules, tc.date, tc.booked, SlotMinutes)
			if err != nil {
				t.Fatalf("Bookable failed: %v", err)
			}
			assertStrings(t, got, tc.want)
		})
	}
}

func TestBookableMalformed(t *testing.T) {
	badRule := []Rule{{Weekday: "Monday", Start: "9am", End: "11:00"}}
	if _, err := Bookable(badRule, monday, nil, SlotMinutes); !errors.Is(err, ErrMalformedTime) {
		t.Fatalf("expected ErrMalformedTime for bad rule, got %v", err)
	}

	rules := []Rule{{Weekday: "Monday", Start: "09:00", End: "11:00"}}
	if _, err := Bookable(rules, monday, []string{"halften"}, SlotMinutes); !errors.Is(err, ErrMalformedTime) {
		t.Fatalf("expected ErrMalformedTime for bad booked value, got %v", err)
	}

	// A bad rule on another weekday is never parsed and never faults.
	mixed := []Rule{
		{Weekday: "Tuesday", Start: "oops", End: "11:00"},
		{Weekday: "Monday", Start: "09:00", End: "10:00"},
	}
	got, err := Bookable(mixed, monday, nil, SlotMinutes)
	if err != nil {
		t.Fatalf("Bookable failed: %v", err)
	}
	assertStrings(t, got, []string{"09:00", "09:30"})
}

func TestBookableSubtractionProperties(t *testing.T) {
	rules := []Rule{{Weekday: "Monday", Start: "08:00", End: "12:00"}}
	booked := []string{"08:30", "10:00", "11:30"}

	got, err := Bookable(rules, monday, booked, SlotMinutes)
	if err != nil {
		t.Fatalf("Bookable failed: %v", err)
	}
	for _, b := range booked {
		for _, s := range got {
			if s == b {
				t.Errorf("booked slot %s present in output", b)
			}
		}
	}

	grid, err := Bookable(rules, monday, nil, SlotMinutes)
	if err != nil {
		t.Fatalf("Bookable failed: %v", err)
	}
	// Output must be an order-preserving subsequence of the raw grid.
	i := 0
	for _, s := range got {
		for i < len(grid) && grid[i] != s {
			i++
		}
		if i == len(grid) {
			t.Fatalf("output %v is not a subsequence of grid %v", got, grid)
		}
		i++
	}
}

func TestContains(t *testing.T) {
	rules := []Rule{{Weekday: "Monday", Start: "09:00", End: "11:00"}}

	ok, err := Contains(rules, monday, nil, SlotMinutes, "10:00")
	if err != nil || !ok {
		t.Fatalf("expected 10:00 bookable, got ok=%v err=%v", ok, err)
	}
	ok, err = Contains(rules, monday, []string{"10:00"}, SlotMinutes, "10:00")
	if err != nil || ok {
		t.Fatalf("expected booked 10:00 not bookable, got ok=%v err=%v", ok, err)
	}
	ok, err = Contains(rules, monday, nil, SlotMinutes, "10:15")
	if err != nil || ok {
		t.Fatalf("expected off-grid 10:15 not bookable, got ok=%v err=%v", ok, err)
	}
}

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("ParseClock(%q) failed: %v", s, err)
	}
	return c
}

func assertSlots(t *testing.T, got []Clock, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i].String() != want[i] {
			t.Errorf("slot %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
