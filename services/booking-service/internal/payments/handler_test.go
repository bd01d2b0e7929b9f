package payments

import "testing"

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "500.00", want: 50000},
		{in: "500", want: 50000},
		{in: "0.50", want: 50},
		{in: "12.5", want: 1250},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: ".50", wantErr: true},
		{in: "12.345", wantErr: true},
		{in: "12.3a", wantErr: true},
		{in: "-5.00", wantErr: true},
	}
	for _, tc := range cases {
		got, err := minorUnits(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("minorUnits(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("minorUnits(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("minorUnits(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
