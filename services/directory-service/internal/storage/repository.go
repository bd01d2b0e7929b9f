package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medhelp-app/medhelp/libs/db"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrLicenseExists   = errors.New("license number already registered")
	ErrAlreadyReviewed = errors.New("application already reviewed")
)

// Doctor statuses follow the application lifecycle: a doctor applies,
// an admin verifies or rejects. Only verified doctors are public.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

type Doctor struct {
	ID              string
	UserID          string
	Name            string
	Specialization  string
	LicenseNumber   string
	ExperienceYears int
	ConsultationFee string
	Bio             string
	DegreeURL       string
	Status          string
	CreatedAt       time.Time
}

type Application struct {
	UserID          string
	Name            string
	Specialization  string
	LicenseNumber   string
	ExperienceYears int
	ConsultationFee string
	Bio             string
	DegreeURL       string
}

func (r *Repository) CreateApplication(ctx context.Context, app Application) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, user_id, name, specialization, license_number, experience_years, consultation_fee, bio, degree_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
	`, id, app.UserID, app.Name, app.Specialization, app.LicenseNumber, app.ExperienceYears, app.ConsultationFee, app.Bio, app.DegreeURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrLicenseExists
		}
		return "", err
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Doctor, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id::text, user_id, name, specialization, license_number, experience_years, consultation_fee::text, bio, degree_url, status, created_at
		FROM doctors
		WHERE id = $1
	`, id))
}

func (r *Repository) GetByUserID(ctx context.Context, userID string) (Doctor, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id::text, user_id, name, specialization, license_number, experience_years, consultation_fee::text, bio, degree_url, status, created_at
		FROM doctors
		WHERE user_id = $1
	`, userID))
}

func (r *Repository) scanOne(row pgx.Row) (Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.LicenseNumber, &d.ExperienceYears, &d.ConsultationFee, &d.Bio, &d.DegreeURL, &d.Status, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return Doctor{}, ErrNotFound
	}
	if err != nil {
		return Doctor{}, err
	}
	return d, nil
}

// ListVerified returns verified doctors, optionally filtered by a
// case-insensitive substring match on name or specialization.
func (r *Repository) ListVerified(ctx context.Context, query string, specialization string, limit int) ([]Doctor, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id, name, specialization, license_number, experience_years, consultation_fee::text, bio, degree_url, status, created_at
		FROM doctors
		WHERE status = 'verified'
			AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR specialization ILIKE '%' || $1 || '%')
			AND ($2 = '' OR specialization ILIKE $2)
		ORDER BY name ASC
		LIMIT $3
	`, query, specialization, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDoctors(rows)
}

func (r *Repository) ListPending(ctx context.Context, limit int) ([]Doctor, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id, name, specialization, license_number, experience_years, consultation_fee::text, bio, degree_url, status, created_at
		FROM doctors
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDoctors(rows)
}

// ListAll is the admin view: every application regardless of status,
// optionally narrowed to one status.
func (r *Repository) ListAll(ctx context.Context, status string, limit int) ([]Doctor, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id, name, specialization, license_number, experience_years, consultation_fee::text, bio, degree_url, status, created_at
		FROM doctors
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDoctors(rows)
}

func scanDoctors(rows pgx.Rows) ([]Doctor, error) {
	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.LicenseNumber, &d.ExperienceYears, &d.ConsultationFee, &d.Bio, &d.DegreeURL, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// SetStatus moves a pending application to verified or rejected inside
// tx so the caller can write the outbox event atomically.
func (r *Repository) SetStatus(ctx context.Context, tx pgx.Tx, id string, status string) (Doctor, error) {
	var d Doctor
	err := tx.QueryRow(ctx, `
		UPDATE doctors
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id::text, user_id, name, specialization, license_number, experience_years, consultation_fee::text, bio, degree_url, status, created_at
	`, id, status).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.LicenseNumber, &d.ExperienceYears, &d.ConsultationFee, &d.Bio, &d.DegreeURL, &d.Status, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		if _, lookupErr := r.GetByID(ctx, id); lookupErr == nil {
			return Doctor{}, ErrAlreadyReviewed
		}
		return Doctor{}, ErrNotFound
	}
	if err != nil {
		return Doctor{}, err
	}
	return d, nil
}

// AvailabilityRule is one recurring weekly window, times stored as
// validated zero-padded "HH:MM" strings.
type AvailabilityRule struct {
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ReplaceRules swaps a doctor's whole weekly schedule in one
// transaction. One rule per weekday is enforced by the primary key.
func (r *Repository) ReplaceRules(ctx context.Context, doctorID string, rules []AvailabilityRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE doctor_id = $1`, doctorID); err != nil {
		return err
	}
	for _, rule := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_rules (doctor_id, weekday, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`, doctorID, rule.Weekday, rule.StartTime, rule.EndTime); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListRules(ctx context.Context, doctorID string) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_time, end_time
		FROM availability_rules
		WHERE doctor_id = $1
		ORDER BY CASE weekday
			WHEN 'Monday' THEN 1
			WHEN 'Tuesday' THEN 2
			WHEN 'Wednesday' THEN 3
			WHEN 'Thursday' THEN 4
			WHEN 'Friday' THEN 5
			WHEN 'Saturday' THEN 6
			WHEN 'Sunday' THEN 7
		END
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AvailabilityRule
	for rows.Next() {
		var rule AvailabilityRule
		if err := rows.Scan(&rule.Weekday, &rule.StartTime, &rule.EndTime); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
