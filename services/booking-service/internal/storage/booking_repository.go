package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medhelp-app/medhelp/libs/db"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

type IdempotencyRecord struct {
	PatientID       string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

// LockIdempotencyKey claims (patient, key) for the duration of the tx.
// A second request with the same key blocks here until the first
// commits, then sees the recorded response.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, patientID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, patientID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (patient_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (patient_id, idempotency_key) DO NOTHING
	`, patientID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, patientID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, patientID, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE patient_id = $1 AND idempotency_key = $2
	`, patientID, key, appointmentID, statusCode, response)
	return err
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, patientID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT patient_id,
			idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE patient_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, patientID, key).Scan(
		&rec.PatientID,
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

// Create inserts a confirmed appointment. The partial unique index on
// (doctor_id, date, slot_minute) over non-released statuses is the
// final authority on double booking; IsSlotTaken recognizes its
// violation.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(doctor_id, patient_id, date, slot_minute, kind, status, meeting_link, fee_amount, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, appt.DoctorID, appt.PatientID, appt.Date, appt.SlotMinute, appt.Kind, appt.Status,
		appt.MeetingLink, appt.FeeAmount, appt.PaymentStatus).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// BookedSlotMinutes returns slot starts already held for the doctor and
// date, in chronological order. Cancelled and rejected rows do not
// block a slot.
func (r *BookingRepository) BookedSlotMinutes(ctx context.Context, doctorID string, date time.Time) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_minute
		FROM appointments
		WHERE doctor_id = $1
			AND date = $2
			AND status NOT IN ('cancelled', 'rejected')
		ORDER BY slot_minute ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, doctor_id::text, patient_id, date, slot_minute, kind, status,
			COALESCE(meeting_link, ''), fee_amount::text, payment_status,
			cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1
	`, appointmentID)
	return scanAppointment(row)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT id::text, doctor_id::text, patient_id, date, slot_minute, kind, status,
			COALESCE(meeting_link, ''), fee_amount::text, payment_status,
			cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID)
	return scanAppointment(row)
}

func (r *BookingRepository) CancelAppointment(ctx context.Context, tx pgx.Tx, appointmentID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, appointmentID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// RejectFutureForDoctor releases upcoming appointments when a doctor's
// verification is withdrawn. Returns the affected appointment ids.
func (r *BookingRepository) RejectFutureForDoctor(ctx context.Context, tx pgx.Tx, doctorID string, from time.Time, reason string) ([]string, error) {
	rows, err := tx.Query(ctx, `
		UPDATE appointments
		SET status = 'rejected',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE doctor_id = $1
			AND date >= $2
			AND status = 'confirmed'
		RETURNING id::text
	`, doctorID, from, reason)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *BookingRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, `patient_id = $1`, patientID, limit)
}

func (r *BookingRepository) ListByDoctor(ctx context.Context, doctorID string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, `doctor_id = $1`, doctorID, limit)
}

// ListAll is the admin view across every patient and doctor.
func (r *BookingRepository) ListAll(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, doctor_id::text, patient_id, date, slot_minute, kind, status,
			COALESCE(meeting_link, ''), fee_amount::text, payment_status,
			cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		ORDER BY date DESC, slot_minute DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *BookingRepository) list(ctx context.Context, where string, key string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, doctor_id::text, patient_id, date, slot_minute, kind, status,
			COALESCE(meeting_link, ''), fee_amount::text, payment_status,
			cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE `+where+`
		ORDER BY date DESC, slot_minute DESC
		LIMIT $2
	`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *BookingRepository) MarkPaid(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET payment_status = 'paid'
		WHERE id = $1
	`, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.DoctorID,
		&appt.PatientID,
		&appt.Date,
		&appt.SlotMinute,
		&appt.Kind,
		&appt.Status,
		&appt.MeetingLink,
		&appt.FeeAmount,
		&appt.PaymentStatus,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// IsSlotTaken reports a unique violation of the active-slot index,
// which is how a lost booking race surfaces.
func IsSlotTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
