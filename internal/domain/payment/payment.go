package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is one payment attempt against the gateway, keyed by the
// gateway-issued reference. The reference is the idempotency key for
// the whole reconciliation subsystem.
type Record struct {
	ID              int64
	Reference       string
	ApplicantUserID int64
	SessionID       int64
	ProgramID       int64
	Amount          Money
	Type            Type
	Status          Status
	PaidAt          *time.Time
	ApplicationID   *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Money is a monetary amount in the smallest currency unit.
type Money int64

// Type represents what the payment is for.
type Type string

const (
	TypeApplicationFee Type = "application_fee"
	TypeAcceptanceFee  Type = "acceptance_fee"
)

// Status represents payment status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome is the result of processing one confirmation event. It is
// returned by both the webhook and the verification paths so duplicate
// deliveries are reported, not thrown.
type Outcome string

const (
	OutcomeMarkedPaid       Outcome = "marked_paid"
	OutcomeMarkedFailed     Outcome = "marked_failed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeUnknownReference Outcome = "unknown_reference"
)

var (
	// ErrNotFound covers a missing session, program, applicant or record.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateReference means the store already holds the reference at
	// creation time. References are gateway-generated, so this is an anomaly.
	ErrDuplicateReference = errors.New("duplicate payment reference")
)

// NewRecord creates a pending payment record with validation.
func NewRecord(reference string, applicantUserID, sessionID, programID int64, amount Money, typ Type) (*Record, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("reference is required")
	}
	if applicantUserID <= 0 {
		return nil, fmt.Errorf("invalid applicant user ID: %d", applicantUserID)
	}
	if sessionID <= 0 {
		return nil, fmt.Errorf("invalid session ID: %d", sessionID)
	}
	if programID <= 0 {
		return nil, fmt.Errorf("invalid program ID: %d", programID)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %d", amount)
	}
	if !ValidType(typ) {
		return nil, fmt.Errorf("invalid payment type: %s", typ)
	}

	now := time.Now()
	return &Record{
		Reference:       reference,
		ApplicantUserID: applicantUserID,
		SessionID:       sessionID,
		ProgramID:       programID,
		Amount:          amount,
		Type:            typ,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsTerminal reports whether no further status transition is permitted.
// A duplicate confirmation for a terminal record must be a no-op.
func (r *Record) IsTerminal() bool {
	return r.Status == StatusPaid || r.Status == StatusFailed || r.Status == StatusCancelled
}

// IsPaid checks if the payment reached the paid state.
func (r *Record) IsPaid() bool {
	return r.Status == StatusPaid
}

// ValidType checks if a payment type is one we charge for.
func ValidType(t Type) bool {
	return t == TypeApplicationFee || t == TypeAcceptanceFee
}
