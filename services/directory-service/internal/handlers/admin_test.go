package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medhelp-app/medhelp/libs/auth"
)

func newBareHandler() *Handler {
	return New(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListDoctorsRequiresAdmin(t *testing.T) {
	h := newBareHandler()

	for _, role := range []string{"", auth.RolePatient, auth.RoleDoctor} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/doctors", nil)
		if role != "" {
			req.Header.Set("X-Role", role)
		}
		rec := httptest.NewRecorder()
		h.ListDoctors(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("role %q: status = %d, want 403", role, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("role %q: decode body: %v", role, err)
		}
		if body["error"] != "forbidden" {
			t.Fatalf("role %q: error = %q, want forbidden", role, body["error"])
		}
	}
}

func TestListDoctorsRejectsUnknownStatus(t *testing.T) {
	h := newBareHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/doctors?status=archived", nil)
	req.Header.Set("X-Role", auth.RoleAdmin)
	rec := httptest.NewRecorder()
	h.ListDoctors(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
