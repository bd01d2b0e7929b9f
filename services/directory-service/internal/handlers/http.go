package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medhelp-app/medhelp/libs/auth"
	"github.com/medhelp-app/medhelp/libs/db"
	"github.com/medhelp-app/medhelp/libs/httpx"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/services/directory-service/internal/storage"
)

const (
	EventDoctorApplied  = "directory.doctor.applied.v1"
	EventDoctorVerified = "directory.doctor.verified.v1"
	EventDoctorRejected = "directory.doctor.rejected.v1"
)

type Handler struct {
	pool   *db.Pool
	repo   *storage.Repository
	outbox *outbox.Repository
	logger *slog.Logger
}

func New(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, repo: repo, outbox: outboxRepo, logger: logger}
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func doctorView(d storage.Doctor) map[string]any {
	return map[string]any{
		"id":               d.ID,
		"name":             d.Name,
		"specialization":   d.Specialization,
		"experience_years": d.ExperienceYears,
		"consultation_fee": d.ConsultationFee,
		"bio":              d.Bio,
		"status":           d.Status,
	}
}

// Apply registers a doctor application for the authenticated user.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := userIDFromHeader(r)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user")
		return
	}

	var req struct {
		Name            string  `json:"name"`
		Specialization  string  `json:"specialization"`
		LicenseNumber   string  `json:"license_number"`
		ExperienceYears int     `json:"experience_years"`
		ConsultationFee float64 `json:"consultation_fee"`
		Bio             string  `json:"bio"`
		DegreeURL       string  `json:"degree_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Specialization = strings.TrimSpace(req.Specialization)
	req.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
	if req.Name == "" || req.Specialization == "" || req.LicenseNumber == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.ExperienceYears < 0 || req.ExperienceYears > 80 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_experience_years")
		return
	}
	if req.ConsultationFee < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_consultation_fee")
		return
	}

	if _, err := h.repo.GetByUserID(r.Context(), userID); err == nil {
		httpx.WriteError(w, http.StatusConflict, "application_exists")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("doctor lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	id, err := h.repo.CreateApplication(r.Context(), storage.Application{
		UserID:          userID,
		Name:            req.Name,
		Specialization:  req.Specialization,
		LicenseNumber:   req.LicenseNumber,
		ExperienceYears: req.ExperienceYears,
		ConsultationFee: formatFee(req.ConsultationFee),
		Bio:             strings.TrimSpace(req.Bio),
		DegreeURL:       strings.TrimSpace(req.DegreeURL),
	})
	if err != nil {
		if errors.Is(err, storage.ErrLicenseExists) {
			httpx.WriteError(w, http.StatusConflict, "license_exists")
			return
		}
		h.logger.Error("doctor application failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	h.emitEvent(r, EventDoctorApplied, id, map[string]any{
		"doctor_id":      id,
		"user_id":        userID,
		"name":           req.Name,
		"specialization": req.Specialization,
	})

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"id": id, "status": storage.StatusPending})
}

// Me returns the authenticated user's doctor record, application
// status included.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := userIDFromHeader(r)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user")
		return
	}
	d, err := h.repo.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	view := doctorView(d)
	view["license_number"] = d.LicenseNumber
	httpx.WriteJSON(w, http.StatusOK, view)
}

// SetAvailability replaces the authenticated doctor's weekly schedule.
// Only verified doctors may publish availability.
func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	userID := userIDFromHeader(r)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user")
		return
	}

	d, err := h.repo.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if d.Status != storage.StatusVerified {
		httpx.WriteError(w, http.StatusForbidden, "not_verified")
		return
	}

	var req struct {
		Rules []storage.AvailabilityRule `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if code := validateRules(req.Rules); code != "" {
		httpx.WriteError(w, http.StatusBadRequest, code)
		return
	}

	if err := h.repo.ReplaceRules(r.Context(), d.ID, req.Rules); err != nil {
		h.logger.Error("availability update failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns verified doctors for the public directory. Supports
// ?q= substring search on name/specialization and ?specialization=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	spec := strings.TrimSpace(r.URL.Query().Get("specialization"))

	doctors, err := h.repo.ListVerified(r.Context(), q, spec, 100)
	if err != nil {
		h.logger.Error("doctor list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	out := make([]map[string]any, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, doctorView(d))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Get returns one verified doctor by ?id=.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id_required")
		return
	}
	d, err := h.repo.GetByID(r.Context(), id)
	if err != nil || d.Status != storage.StatusVerified {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("doctor lookup failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		httpx.WriteError(w, http.StatusNotFound, "not_found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, doctorView(d))
}

// Availability returns a doctor's weekly rules by ?doctor_id=. Served
// to both the public directory and the booking service.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	if doctorID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "doctor_id_required")
		return
	}
	d, err := h.repo.GetByID(r.Context(), doctorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	rules, err := h.repo.ListRules(r.Context(), d.ID)
	if err != nil {
		h.logger.Error("rules list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if rules == nil {
		rules = []storage.AvailabilityRule{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"doctor_id": d.ID,
		"rules":     rules,
	})
}

// ListPending returns pending doctor applications for admin review.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	doctors, err := h.repo.ListPending(r.Context(), 100)
	if err != nil {
		h.logger.Error("pending list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	out := make([]map[string]any, 0, len(doctors))
	for _, d := range doctors {
		view := doctorView(d)
		view["user_id"] = d.UserID
		view["license_number"] = d.LicenseNumber
		view["degree_url"] = d.DegreeURL
		out = append(out, view)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// ListDoctors returns every application for admin review, any status,
// optionally narrowed by ?status=.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", storage.StatusPending, storage.StatusVerified, storage.StatusRejected:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	doctors, err := h.repo.ListAll(r.Context(), status, 200)
	if err != nil {
		h.logger.Error("doctor list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	out := make([]map[string]any, 0, len(doctors))
	for _, d := range doctors {
		view := doctorView(d)
		view["user_id"] = d.UserID
		view["license_number"] = d.LicenseNumber
		view["degree_url"] = d.DegreeURL
		out = append(out, view)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Verify approves a pending application (?id=).
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, storage.StatusVerified, EventDoctorVerified)
}

// Reject declines a pending application (?id=).
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, storage.StatusRejected, EventDoctorRejected)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, status, eventType string) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id_required")
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.logger.Error("tx begin failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	d, err := h.repo.SetStatus(r.Context(), tx, id, status)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found")
		case errors.Is(err, storage.ErrAlreadyReviewed):
			httpx.WriteError(w, http.StatusConflict, "already_reviewed")
		default:
			h.logger.Error("status update failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"doctor_id":      d.ID,
		"user_id":        d.UserID,
		"name":           d.Name,
		"specialization": d.Specialization,
		"status":         d.Status,
	})
	if err := h.outbox.Insert(r.Context(), tx, outbox.Event{
		AggregateType: "doctor",
		AggregateID:   d.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("tx commit failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": d.ID, "status": d.Status})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Role")) != auth.RoleAdmin {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// emitEvent writes a standalone outbox event in its own transaction,
// for cases where the state change already committed.
func (h *Handler) emitEvent(r *http.Request, eventType, aggregateID string, body map[string]any) {
	payload, _ := json.Marshal(body)
	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.logger.Error("outbox tx begin failed", "err", err)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()
	if err := h.outbox.Insert(r.Context(), tx, outbox.Event{
		AggregateType: "doctor",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("outbox tx commit failed", "err", err)
	}
}
