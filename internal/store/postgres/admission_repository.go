package postgres

import (
	"context"
	"errors"

	"admitpay/internal/domain/admission"
	"admitpay/internal/domain/payment"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// admissionRepository implements repositories.AdmissionStore. It is the
// reconciliation engine's read-mostly window into the admissions schema,
// plus the one side effect: creating an application.
type admissionRepository struct {
	db *pgxpool.Pool
}

func NewAdmissionRepository(db *pgxpool.Pool) *admissionRepository {
	return &admissionRepository{db: db}
}

func (r *admissionRepository) CurrentSession(ctx context.Context) (*admission.Session, error) {
	var s admission.Session
	err := r.db.QueryRow(ctx, `
		SELECT id, name, active, starts_at, ends_at, created_at
		  FROM admission_sessions
		 WHERE active = true
		 ORDER BY starts_at DESC
		 LIMIT 1`).Scan(&s.ID, &s.Name, &s.Active, &s.StartsAt, &s.EndsAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *admissionRepository) FindProgram(ctx context.Context, id int64) (*admission.Program, error) {
	var p admission.Program
	var appFee, accFee int64
	err := r.db.QueryRow(ctx, `
		SELECT id, name, faculty_id, application_fee, acceptance_fee
		  FROM programs
		 WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.FacultyID, &appFee, &accFee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ApplicationFee = payment.Money(appFee)
	p.AcceptanceFee = payment.Money(accFee)
	return &p, nil
}

func (r *admissionRepository) FindApplicant(ctx context.Context, id int64) (*admission.Applicant, error) {
	var a admission.Applicant
	err := r.db.QueryRow(ctx, `
		SELECT id, email, first_name, last_name
		  FROM users
		 WHERE id = $1 AND role = 'applicant'`, id).Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication inserts the application for (applicant, session).
// The engine already guarantees at most one call per paid reference;
// ON CONFLICT makes a second call for the same applicant+session return
// the existing row instead of creating a duplicate.
func (r *admissionRepository) CreateApplication(ctx context.Context, applicantUserID, sessionID, programID int64) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO applications (applicant_user_id, session_id, program_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'submitted', now(), now())
		ON CONFLICT (applicant_user_id, session_id) DO UPDATE
		  SET updated_at = now()
		RETURNING id`,
		applicantUserID, sessionID, programID,
	).Scan(&id)
	return id, err
}
