package gateway

import (
	"context"
	"errors"
	"time"

	"admitpay/internal/domain/payment"
)

// ErrUnavailable covers network failures, timeouts and 5xx answers from
// the gateway. Callers must treat it as "outcome unknown": initialization
// is safe to retry, verification must leave the record pending.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Metadata rides along on initialize and is echoed back by the gateway.
// It is a cross-check only; the authoritative copy lives on the stored
// payment record.
type Metadata struct {
	ApplicantUserID int64  `json:"applicant_user_id"`
	SessionID       int64  `json:"session_id"`
	ProgramID       int64  `json:"program_id"`
	PaymentType     string `json:"payment_type"`
}

// InitializeResult is the gateway's answer to a transaction initialization.
type InitializeResult struct {
	Reference        string
	AuthorizationURL string
}

// VerifyResult is the gateway's authoritative answer about one reference.
type VerifyResult struct {
	Confirmed bool
	Amount    payment.Money
	PaidAt    *time.Time
	RawStatus string
	Metadata  Metadata
}

// Settled reports whether the gateway gave a definitive answer. A
// still-processing status is not a failure signal and must not
// transition the record.
func (v *VerifyResult) Settled() bool {
	if v.Confirmed {
		return true
	}
	switch v.RawStatus {
	case "failed", "abandoned", "reversed":
		return true
	}
	return false
}

// Client is the single seam through which all gateway HTTP happens, so
// the reconciliation engine can be tested without network access.
type Client interface {
	Initialize(ctx context.Context, email string, amount payment.Money, md Metadata) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}
