package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/medhelp-app/medhelp/libs/httpx"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/model"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/storage"
)

const EventPaymentSucceeded = "booking.payment.succeeded.v1"

type Config struct {
	StripeSecretKey               string
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
	Currency                      string
	CheckoutSuccessURL            string
	CheckoutCancelURL             string
}

type Handler struct {
	repo                   *Repository
	bookings               *storage.BookingRepository
	outbox                 *outbox.Repository
	logger                 *slog.Logger
	stripeSecretKey        string
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
	currency               string
	checkoutSuccessURL     string
	checkoutCancelURL      string
}

func NewHandler(repo *Repository, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.StripeWebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	currency := strings.TrimSpace(strings.ToLower(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Handler{
		repo:                   repo,
		bookings:               bookings,
		outbox:                 outboxRepo,
		logger:                 logger,
		stripeSecretKey:        strings.TrimSpace(cfg.StripeSecretKey),
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: time.Duration(tolSeconds) * time.Second,
		currency:               currency,
		checkoutSuccessURL:     strings.TrimSpace(cfg.CheckoutSuccessURL),
		checkoutCancelURL:      strings.TrimSpace(cfg.CheckoutCancelURL),
	}
}

type checkoutRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Checkout creates a Stripe Checkout session for an appointment's
// consultation fee. The patient pays once per appointment; the webhook
// flips the appointment to paid.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	if h.stripeSecretKey == "" {
		httpx.WriteError(w, http.StatusNotImplemented, "payments_not_configured")
		return
	}

	patientID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if patientID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_user_context")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id_required")
		return
	}

	ctx := r.Context()
	appt, err := h.bookings.Get(ctx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "appointment_not_found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_load_appointment")
		return
	}
	if appt.PatientID != patientID {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	if appt.Status != model.StatusConfirmed {
		httpx.WriteError(w, http.StatusConflict, "appointment_not_payable")
		return
	}
	if appt.PaymentStatus == model.PaymentPaid {
		httpx.WriteError(w, http.StatusConflict, "already_paid")
		return
	}

	amount, err := minorUnits(appt.FeeAmount)
	if err != nil {
		h.logger.Error("appointment fee failed to parse", "err", err, "appointment_id", appt.ID)
		httpx.WriteError(w, http.StatusInternalServerError, "invalid_fee_amount")
		return
	}
	if amount <= 0 {
		httpx.WriteError(w, http.StatusConflict, "nothing_to_pay")
		return
	}

	stripe.Key = h.stripeSecretKey

	// Stripe-level idempotency: allows safe retries.
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		// Deterministic fallback: one open session per appointment.
		idemKey = "appointment-fee:" + appt.ID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(h.checkoutSuccessURL),
		CancelURL:         stripe.String(h.checkoutCancelURL),
		ClientReferenceID: stripe.String(appt.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(h.currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Consultation fee"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"appointment_id": appt.ID,
			"patient_id":     appt.PatientID,
		},
	}
	params.AddExpand("url")
	params.IdempotencyKey = stripe.String(idemKey)

	sess, err := checkoutsession.New(params)
	if err != nil {
		h.logger.Error("stripe checkout session create failed", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "failed_to_create_checkout_session")
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := h.repo.UpsertSession(ctx, tx, Session{
		StripeSessionID: sess.ID,
		AppointmentID:   appt.ID,
		PatientID:       appt.PatientID,
		Amount:          appt.FeeAmount,
		Currency:        h.currency,
		Status:          "created",
		URL:             sess.URL,
	}); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_persist_session")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_commit")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"url":        sess.URL,
	})
}

// SessionStatus is intentionally public: Stripe redirects the customer
// without a JWT. It returns non-sensitive state only.
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "session_id_required")
		return
	}

	sess, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_load_session")
		return
	}

	resp := map[string]any{
		"session_id": sess.StripeSessionID,
		"status":     sess.Status,
		"amount":     sess.Amount,
		"currency":   sess.Currency,
		"updated_at": sess.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if sess.CompletedAt != nil {
		resp["completed_at"] = sess.CompletedAt.UTC().Format(time.RFC3339)
	}
	if sess.ExpiredAt != nil {
		resp["expired_at"] = sess.ExpiredAt.UTC().Format(time.RFC3339)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// StripeWebhook handles Stripe webhooks (no JWT auth; signature
// verification is the auth). Gateway should expose this path publicly.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	if h.stripeWebhookSecret == "" {
		httpx.WriteError(w, http.StatusServiceUnavailable, "webhook_not_configured")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_signature")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed_to_read_body")
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_signature")
		return
	}

	occurredAt := time.Unix(evt.Created, 0).UTC()
	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", occurredAt.Format(time.RFC3339),
	)

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Idempotency: ignore replayed Stripe events.
	if err := h.repo.InsertProviderEvent(ctx, tx, ProviderEvent{
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, ErrDuplicateProviderEvent) {
			h.logger.Info("payment provider event duplicate ignored", "provider_event_id", evt.ID, "event_type", evtType)
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			_ = tx.Commit(ctx)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_record_provider_event")
		return
	}

	switch evtType {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		appointmentID := strings.TrimSpace(session.Metadata["appointment_id"])
		patientID := strings.TrimSpace(session.Metadata["patient_id"])
		if appointmentID == "" {
			h.logger.Warn("stripe: missing appointment_id metadata on checkout session")
			break
		}
		if err := h.applyPaymentSucceeded(ctx, tx, session.ID, appointmentID, patientID, occurredAt); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "failed_to_apply_payment")
			return
		}

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		_ = h.repo.MarkSessionExpired(ctx, tx, session.ID, occurredAt)
	}

	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed_to_commit")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) applyPaymentSucceeded(ctx context.Context, tx pgx.Tx, stripeSessionID, appointmentID, patientID string, occurredAt time.Time) error {
	if err := h.repo.MarkSessionCompleted(ctx, tx, stripeSessionID, occurredAt); err != nil {
		return err
	}
	if err := h.bookings.MarkPaid(ctx, tx, appointmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Session points at an appointment we no longer have; keep
			// the delivery recorded but don't fail the webhook.
			h.logger.Warn("paid appointment not found", "appointment_id", appointmentID)
			return nil
		}
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id":    appointmentID,
		"patient_id":        patientID,
		"stripe_session_id": stripeSessionID,
		"paid_at":           occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appointmentID,
		EventType:     EventPaymentSucceeded,
		Payload:       payload,
	})
}

// minorUnits converts a decimal fee like "500.00" into the currency's
// smallest unit for Stripe. At most two fraction digits are accepted.
func minorUnits(fee string) (int64, error) {
	fee = strings.TrimSpace(fee)
	if fee == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(fee, ".")
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q", fee)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var total int64
	for _, c := range whole + frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", fee)
		}
		total = total*10 + int64(c-'0')
	}
	return total, nil
}
