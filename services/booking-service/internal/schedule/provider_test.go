package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newDirectoryStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/doctors/get", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "doc-1" {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc-1","name":"Dr. Ayesha Karim","consultation_fee":"500.00","status":"verified"}`))
	})
	mux.HandleFunc("/api/v1/doctors/availability", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("doctor_id") != "doc-1" {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"doctor_id":"doc-1","rules":[{"weekday":"Monday","start_time":"09:00","end_time":"11:00"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestHTTPProviderDoctor(t *testing.T) {
	srv := newDirectoryStub(t)
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	doc, err := p.Doctor(ctx, "doc-1")
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if doc.Name != "Dr. Ayesha Karim" {
		t.Fatalf("unexpected name: %s", doc.Name)
	}
	if doc.ConsultationFee != "500.00" {
		t.Fatalf("unexpected fee: %s", doc.ConsultationFee)
	}

	if _, err := p.Doctor(ctx, "doc-missing"); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestHTTPProviderRules(t *testing.T) {
	srv := newDirectoryStub(t)
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rules, err := p.Rules(ctx, "doc-1")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0].Weekday != "Monday" || rules[0].Start != "09:00" || rules[0].End != "11:00" {
		t.Fatalf("unexpected rule: %+v", rules[0])
	}
}

func TestHTTPProviderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := p.Rules(ctx, "doc-1"); err == nil {
		t.Fatal("expected error for upstream 500")
	}
	if _, err := p.Doctor(ctx, "doc-1"); errors.Is(err, ErrDoctorNotFound) {
		t.Fatal("a 500 must not read as doctor-not-found")
	}
}
