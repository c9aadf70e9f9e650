package admission

import (
	"fmt"
	"time"

	"admitpay/internal/domain/payment"
)

// Session is one admission cycle. At most one session is active at a time.
type Session struct {
	ID        int64
	Name      string
	Active    bool
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
}

// Program is a course of study with its fee configuration. Fees live on
// the program so the charged amount is always computed server-side.
type Program struct {
	ID             int64
	Name           string
	FacultyID      int64
	ApplicationFee payment.Money
	AcceptanceFee  payment.Money
}

// FeeFor returns the configured fee for a payment type. A missing or
// non-positive fee is a configuration error, not a free payment.
func (p *Program) FeeFor(typ payment.Type) (payment.Money, error) {
	var fee payment.Money
	switch typ {
	case payment.TypeApplicationFee:
		fee = p.ApplicationFee
	case payment.TypeAcceptanceFee:
		fee = p.AcceptanceFee
	default:
		return 0, fmt.Errorf("unknown payment type: %s", typ)
	}
	if fee <= 0 {
		return 0, fmt.Errorf("program %d has no %s configured", p.ID, typ)
	}
	return fee, nil
}

// Applicant is the user paying the fee.
type Applicant struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
}

// Application is the record created exactly once per paid reference.
type Application struct {
	ID              int64
	ApplicantUserID int64
	SessionID       int64
	ProgramID       int64
	CreatedAt       time.Time
}
