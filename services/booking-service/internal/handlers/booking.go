package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medhelp-app/medhelp/libs/auth"
	"github.com/medhelp-app/medhelp/libs/httpx"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/meeting"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/model"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/schedule"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/slotgrid"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/storage"
)

const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
)

type BookingHandler struct {
	repo      *storage.BookingRepository
	outbox    *outbox.Repository
	directory schedule.Provider
	daySched  schedule.DayScheduleProvider // nil outside protogen builds
	logger    *slog.Logger
}

func NewBookingHandler(repo *storage.BookingRepository, outboxRepo *outbox.Repository, directory schedule.Provider, daySched schedule.DayScheduleProvider, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		repo:      repo,
		outbox:    outboxRepo,
		directory: directory,
		daySched:  daySched,
		logger:    logger,
	}
}

type createAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
	Kind     string `json:"kind,omitempty"`
}

type createAppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	DoctorID      string `json:"doctor_id"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	MeetingLink   string `json:"meeting_link,omitempty"`
	FeeAmount     string `json:"fee_amount"`
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelAppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	DoctorID      string `json:"doctor_id"`
	PatientID     string `json:"patient_id"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	MeetingLink   string `json:"meeting_link,omitempty"`
	FeeAmount     string `json:"fee_amount"`
	PaymentStatus string `json:"payment_status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type slotsResponse struct {
	DoctorID string   `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// Slots returns the open slot starts for one doctor and date. An empty
// list is a normal answer (no rule for that weekday, or everything is
// booked); only directory outages and corrupt schedule data are errors.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if doctorID == "" || dateStr == "" {
		httpx.WriteError(w, http.StatusBadRequest, "doctor_id_and_date_required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	ctx := r.Context()
	rules, err := h.rulesFor(ctx, doctorID, dateStr, date)
	if err != nil {
		if errors.Is(err, schedule.ErrDoctorNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "doctor_not_found")
			return
		}
		h.logger.Error("day schedule fetch failed", "err", err, "doctor_id", doctorID)
		httpx.WriteError(w, http.StatusServiceUnavailable, "schedule_unavailable")
		return
	}

	booked, err := h.bookedSlots(ctx, doctorID, date)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_load_bookings")
		return
	}

	open, err := slotgrid.Bookable(rules, date, booked, slotgrid.SlotMinutes)
	if err != nil {
		// Malformed times in stored rules mean the schedule data itself
		// is corrupt; surfacing a fake empty day would hide that.
		h.logger.Error("schedule data failed to parse", "err", err, "doctor_id", doctorID)
		httpx.WriteError(w, http.StatusInternalServerError, "schedule_data_corrupt")
		return
	}
	if open == nil {
		open = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		DoctorID: doctorID,
		Date:     dateStr,
		Slots:    open,
	})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	patientID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if patientID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Date = strings.TrimSpace(req.Date)
	req.Slot = strings.TrimSpace(req.Slot)
	req.Kind = strings.TrimSpace(strings.ToLower(req.Kind))
	if req.Kind == "" {
		req.Kind = model.KindInPerson
	}

	if req.DoctorID == "" || req.Date == "" || req.Slot == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_required_fields")
		return
	}
	if req.Kind != model.KindInPerson && req.Kind != model.KindVirtual {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_kind")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	slotClock, err := slotgrid.ParseClock(req.Slot)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_slot")
		return
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "date_in_past")
		return
	}

	ctx := r.Context()
	doctor, err := h.directory.Doctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, schedule.ErrDoctorNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "doctor_not_found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err, "doctor_id", req.DoctorID)
		httpx.WriteError(w, http.StatusServiceUnavailable, "schedule_unavailable")
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, patientID, idempotencyKey)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "failed_to_lock_idempotency_key")
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	rules, err := h.rulesFor(ctx, req.DoctorID, req.Date, date)
	if err != nil {
		// Dependency errors never finalize the idempotency key; the same
		// key retried later must get a fresh attempt.
		h.logger.Error("day schedule fetch failed", "err", err, "doctor_id", req.DoctorID)
		httpx.WriteError(w, http.StatusServiceUnavailable, "schedule_unavailable")
		return
	}
	booked, err := h.bookedSlots(ctx, req.DoctorID, date)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_load_bookings")
		return
	}
	open, err := slotgrid.Contains(rules, date, booked, slotgrid.SlotMinutes, req.Slot)
	if err != nil {
		h.logger.Error("schedule data failed to parse", "err", err, "doctor_id", req.DoctorID)
		httpx.WriteError(w, http.StatusInternalServerError, "schedule_data_corrupt")
		return
	}
	if !open {
		if idempotencyKey != "" && h.finalizeIdempotencyError(ctx, tx, patientID, idempotencyKey, http.StatusUnprocessableEntity, "slot_unavailable") {
			_ = tx.Commit(ctx)
		}
		httpx.WriteError(w, http.StatusUnprocessableEntity, "slot_unavailable")
		return
	}

	appt := &model.Appointment{
		DoctorID:      req.DoctorID,
		PatientID:     patientID,
		Date:          date,
		SlotMinute:    int(slotClock),
		Kind:          req.Kind,
		Status:        model.StatusConfirmed,
		FeeAmount:     doctor.ConsultationFee,
		PaymentStatus: model.PaymentUnpaid,
	}
	if req.Kind == model.KindVirtual {
		appt.MeetingLink = meeting.NewLink()
	}

	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsSlotTaken(err) {
			// Lost the race against a concurrent booking for the same
			// slot. The insert aborted the tx, so the key stays open.
			httpx.WriteError(w, http.StatusConflict, "slot_taken")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_create_appointment")
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"appointment_id": id,
		"doctor_id":      appt.DoctorID,
		"doctor_name":    doctor.Name,
		"patient_id":     appt.PatientID,
		"date":           req.Date,
		"slot":           req.Slot,
		"kind":           appt.Kind,
		"meeting_link":   appt.MeetingLink,
		"fee_amount":     appt.FeeAmount,
	})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_build_event_payload")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     EventAppointmentBooked,
		Payload:       evtPayload,
	}); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_write_outbox_event")
		return
	}

	resp := createAppointmentResponse{
		AppointmentID: id,
		DoctorID:      appt.DoctorID,
		Date:          req.Date,
		Slot:          req.Slot,
		Kind:          appt.Kind,
		Status:        appt.Status,
		MeetingLink:   appt.MeetingLink,
		FeeAmount:     appt.FeeAmount,
	}
	respBody, err := json.Marshal(resp)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_build_response")
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, patientID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "failed_to_finalize_idempotency_key")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_commit")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	role := strings.TrimSpace(r.Header.Get("X-Role"))
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	var req cancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AppointmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id_required")
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "appointment_not_found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_load_appointment")
		return
	}
	if appt.PatientID != userID && role != auth.RoleAdmin {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	// Cancelling twice is a no-op, not an error.
	if appt.Status == model.StatusCancelled && appt.CancelledAt != nil {
		h.writeCancelResponse(w, appt.ID, appt.CancelledAt.UTC())
		return
	}
	if appt.Status != model.StatusConfirmed {
		httpx.WriteError(w, http.StatusConflict, "appointment_not_cancellable")
		return
	}

	cancelledAt, err := h.repo.CancelAppointment(ctx, tx, appt.ID, req.Reason)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_cancel_appointment")
		return
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"doctor_id":      appt.DoctorID,
		"patient_id":     appt.PatientID,
		"date":           appt.Date.UTC().Format("2006-01-02"),
		"slot":           slotgrid.Clock(appt.SlotMinute).String(),
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
		"reason":         req.Reason,
	})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_build_event_payload")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventAppointmentCancelled,
		Payload:       payload,
	}); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_write_outbox_event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_commit")
		return
	}
	h.writeCancelResponse(w, appt.ID, cancelledAt.UTC())
}

// listScope decides whose appointments a caller may see.
type listScope int

const (
	scopeOwn listScope = iota
	scopeDoctor
	scopeAll
	scopeForbidden
)

func resolveListScope(role, doctorID string) listScope {
	if doctorID != "" {
		if role == auth.RoleDoctor || role == auth.RoleAdmin {
			return scopeDoctor
		}
		return scopeForbidden
	}
	if role == auth.RoleAdmin {
		return scopeAll
	}
	return scopeOwn
}

// List returns the caller's own appointments. Doctors and admins can
// pass doctor_id to see a doctor's calendar; an admin without doctor_id
// gets the full list.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	role := strings.TrimSpace(r.Header.Get("X-Role"))
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	var appts []model.Appointment
	var err error
	switch resolveListScope(role, doctorID) {
	case scopeForbidden:
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	case scopeDoctor:
		appts, err = h.repo.ListByDoctor(r.Context(), doctorID, limit)
	case scopeAll:
		appts, err = h.repo.ListAll(r.Context(), limit)
	default:
		appts, err = h.repo.ListByPatient(r.Context(), userID, limit)
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_list_appointments")
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := appointmentItem{
			AppointmentID: appt.ID,
			DoctorID:      appt.DoctorID,
			PatientID:     appt.PatientID,
			Date:          appt.Date.UTC().Format("2006-01-02"),
			Slot:          slotgrid.Clock(appt.SlotMinute).String(),
			Kind:          appt.Kind,
			Status:        appt.Status,
			MeetingLink:   appt.MeetingLink,
			FeeAmount:     appt.FeeAmount,
			PaymentStatus: appt.PaymentStatus,
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// rulesFor loads the weekly rules that matter for one date. The gRPC
// day-schedule path answers for just that weekday; the HTTP fallback
// returns the full week, which ResolveRule narrows later.
func (h *BookingHandler) rulesFor(ctx context.Context, doctorID, dateStr string, _ time.Time) ([]slotgrid.Rule, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if h.daySched != nil {
		rule, ok, err := h.daySched.DaySchedule(reqCtx, doctorID, dateStr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []slotgrid.Rule{rule}, nil
	}
	return h.directory.Rules(reqCtx, doctorID)
}

func (h *BookingHandler) bookedSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	minutes, err := h.repo.BookedSlotMinutes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, slotgrid.Clock(m).String())
	}
	return out, nil
}

func (h *BookingHandler) writeCancelResponse(w http.ResponseWriter, appointmentID string, cancelledAt time.Time) {
	httpx.WriteJSON(w, http.StatusOK, cancelAppointmentResponse{
		AppointmentID: appointmentID,
		Status:        model.StatusCancelled,
		CancelledAt:   cancelledAt.Format(time.RFC3339),
	})
}

func (h *BookingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, patientID, key string, statusCode int, code string) bool {
	body, err := json.Marshal(map[string]string{"error": code})
	if err != nil {
		return false
	}
	if err := h.repo.FinalizeIdempotency(ctx, tx, patientID, key, "", statusCode, body); err != nil {
		h.logger.Error("failed to finalize idempotency key", "err", err)
		return false
	}
	return true
}
