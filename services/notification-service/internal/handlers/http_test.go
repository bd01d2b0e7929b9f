package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/medhelp-app/medhelp/services/notification-service/internal/storage"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/stream"
)

// sseRecorder serializes writes and signals each flush, so the test can
// follow the handler without racing it.
type sseRecorder struct {
	*httptest.ResponseRecorder
	mu      sync.Mutex
	flushed chan struct{}
}

func newSSERecorder() *sseRecorder {
	return &sseRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		flushed:          make(chan struct{}, 8),
	}
}

func (w *sseRecorder) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Write(p)
}

func (w *sseRecorder) Flush() {
	select {
	case w.flushed <- struct{}{}:
	default:
	}
}

func TestStreamPushesStoredNotification(t *testing.T) {
	hub := stream.NewHub()
	h := New(nil, hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil).WithContext(ctx)
	req.Header.Set("X-User-Id", "u1")
	rec := newSSERecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(rec, req)
		close(done)
	}()

	waitFlush := func(what string) {
		select {
		case <-rec.flushed:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	waitFlush("stream to open")

	n := storage.Notification{ID: 42, UserID: "u1", EventType: "booking.appointment.booked.v1", Title: "Appointment confirmed", CreatedAt: time.Now()}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Publish(n) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitFlush("notification event")

	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: notification") {
		t.Fatalf("body missing event line: %q", body)
	}
	if !strings.Contains(body, `"id":42`) || !strings.Contains(body, "Appointment confirmed") {
		t.Fatalf("body missing notification payload: %q", body)
	}
}

func TestStreamRequiresUserContext(t *testing.T) {
	h := New(nil, stream.NewHub(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil)
	rec := httptest.NewRecorder()
	h.Stream(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
