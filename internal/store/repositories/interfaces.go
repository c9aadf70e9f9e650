package repositories

import (
	"context"
	"time"

	"admitpay/internal/domain/admission"
	"admitpay/internal/domain/payment"
)

// PaymentStore defines the contract for payment record data access.
//
// Payment status is mutated only through Create and UpdateStatusIfPending;
// no other code path writes to it.
type PaymentStore interface {
	// Create inserts a new pending record. Returns
	// payment.ErrDuplicateReference if the reference already exists.
	Create(ctx context.Context, rec *payment.Record) error

	// FindByReference returns payment.ErrNotFound for unknown references.
	FindByReference(ctx context.Context, reference string) (*payment.Record, error)

	// UpdateStatusIfPending performs the conditional update that makes
	// reconciliation race-safe: the write applies only while the stored
	// status is still pending. applied=false means the record was already
	// terminal and the caller lost (or never entered) the race.
	UpdateStatusIfPending(ctx context.Context, reference string, status payment.Status, amount payment.Money, paidAt *time.Time) (applied bool, err error)

	// SetApplicationID stores the application created for a paid record.
	SetApplicationID(ctx context.Context, reference string, applicationID int64) error

	// ListStalePending returns pending records created before cutoff,
	// oldest first, for the requery worker.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Record, error)

	ListByApplicant(ctx context.Context, applicantUserID int64, limit, offset int) ([]*payment.Record, error)
}

// AdmissionStore defines the lookups and the single side effect the
// reconciliation engine consumes from the wider admissions system.
type AdmissionStore interface {
	// CurrentSession returns payment.ErrNotFound if no session is active.
	CurrentSession(ctx context.Context) (*admission.Session, error)

	FindProgram(ctx context.Context, id int64) (*admission.Program, error)

	FindApplicant(ctx context.Context, id int64) (*admission.Applicant, error)

	// CreateApplication is invoked at most once per paid reference by the
	// engine, and is additionally idempotent per (applicant, session) as
	// defense in depth.
	CreateApplication(ctx context.Context, applicantUserID, sessionID, programID int64) (applicationID int64, err error)
}
