package handlers

import (
	"testing"

	"github.com/medhelp-app/medhelp/libs/auth"
)

func TestResolveListScope(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		doctorID string
		want     listScope
	}{
		{"patient sees own", auth.RolePatient, "", scopeOwn},
		{"doctor sees own", auth.RoleDoctor, "", scopeOwn},
		{"admin without filter sees all", auth.RoleAdmin, "", scopeAll},
		{"doctor filters by calendar", auth.RoleDoctor, "d1", scopeDoctor},
		{"admin filters by calendar", auth.RoleAdmin, "d1", scopeDoctor},
		{"patient cannot read a calendar", auth.RolePatient, "d1", scopeForbidden},
		{"missing role cannot read a calendar", "", "d1", scopeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveListScope(tc.role, tc.doctorID); got != tc.want {
				t.Fatalf("resolveListScope(%q, %q) = %d, want %d", tc.role, tc.doctorID, got, tc.want)
			}
		})
	}
}
