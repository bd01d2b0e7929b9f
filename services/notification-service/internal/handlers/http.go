package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medhelp-app/medhelp/libs/httpx"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/storage"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/stream"
)

type Handler struct {
	repo   *storage.Repository
	hub    *stream.Hub
	logger *slog.Logger
}

func New(repo *storage.Repository, hub *stream.Hub, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, hub: hub, logger: logger}
}

type notificationItem struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Payload   map[string]any `json:"payload,omitempty"`
	ReadAt    string         `json:"read_at,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifications, err := h.repo.ListByUser(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_list_notifications")
		return
	}

	items := make([]notificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, toItem(n))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func toItem(n storage.Notification) notificationItem {
	item := notificationItem{
		ID:        n.ID,
		EventType: n.EventType,
		Title:     n.Title,
		Body:      n.Body,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		item.ReadAt = n.ReadAt.UTC().Format(time.RFC3339)
	}
	return item
}

const streamHeartbeat = 25 * time.Second

// Stream pushes the caller's notifications over server-sent events as
// the dispatcher stores them. Clients reconnect on drop and backfill
// anything missed via List.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusNotImplemented, "streaming_unsupported")
		return
	}

	ch, cancel := h.hub.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-ch:
			data, err := json.Marshal(toItem(n))
			if err != nil {
				h.logger.Error("stream encode failed", "err", err, "id", n.ID)
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

type markReadRequest struct {
	ID int64 `json:"id"`
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}
	if req.ID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "id_required")
		return
	}

	if err := h.repo.MarkRead(r.Context(), userID, req.ID); err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "notification_not_found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_mark_read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	updated, err := h.repo.MarkAllRead(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_mark_read")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"updated": updated})
}
