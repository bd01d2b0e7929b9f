// Package payments handles consultation fee collection through Stripe
// Checkout: session creation, webhook ingestion and the paid flag on
// the appointment itself.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medhelp-app/medhelp/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

type Session struct {
	StripeSessionID string
	AppointmentID   string
	PatientID       string
	Amount          string
	Currency        string
	Status          string
	URL             string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	ExpiredAt       *time.Time
}

func (r *Repository) UpsertSession(ctx context.Context, tx pgx.Tx, s Session) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payment_sessions (stripe_session_id, appointment_id, patient_id, amount, currency, status, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_session_id)
		DO UPDATE SET status = EXCLUDED.status,
		              url = EXCLUDED.url,
		              updated_at = now()
	`, s.StripeSessionID, s.AppointmentID, s.PatientID, s.Amount, s.Currency, s.Status, nullIfEmpty(s.URL))
	return err
}

func (r *Repository) MarkSessionCompleted(ctx context.Context, tx pgx.Tx, stripeSessionID string, completedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE payment_sessions
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = now()
		WHERE stripe_session_id = $1
	`, stripeSessionID, completedAt)
	return err
}

func (r *Repository) MarkSessionExpired(ctx context.Context, tx pgx.Tx, stripeSessionID string, expiredAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE payment_sessions
		SET status = 'expired',
		    expired_at = $2,
		    updated_at = now()
		WHERE stripe_session_id = $1 AND status <> 'completed'
	`, stripeSessionID, expiredAt)
	return err
}

func (r *Repository) GetSession(ctx context.Context, stripeSessionID string) (Session, error) {
	var s Session
	var completedAt *time.Time
	var expiredAt *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT stripe_session_id, appointment_id::text, patient_id, amount::text, currency, status,
		       COALESCE(url, ''), created_at, updated_at, completed_at, expired_at
		FROM payment_sessions
		WHERE stripe_session_id = $1
	`, stripeSessionID).Scan(
		&s.StripeSessionID,
		&s.AppointmentID,
		&s.PatientID,
		&s.Amount,
		&s.Currency,
		&s.Status,
		&s.URL,
		&s.CreatedAt,
		&s.UpdatedAt,
		&completedAt,
		&expiredAt,
	)
	if err != nil {
		return Session{}, err
	}
	s.CompletedAt = completedAt
	s.ExpiredAt = expiredAt
	return s, nil
}

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

var ErrDuplicateProviderEvent = errors.New("duplicate provider event")

// InsertProviderEvent records one provider webhook delivery. Replays of
// the same (provider, event id) pair return ErrDuplicateProviderEvent
// so the handler can acknowledge without reapplying side effects.
func (r *Repository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	var payload any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
	`, evt.Provider, evt.ProviderEventID, evt.EventType, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateProviderEvent
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
