package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admitpay/internal/domain/payment"
	"admitpay/internal/gateway"
	"admitpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Service is the reconciliation engine. Both the webhook path and the
// verification path converge on Reconcile, whose correctness rests on one
// property: the store's conditional update applies at most once per
// reference, so at most one caller ever reaches the side-effect branch.
type Service struct {
	payments   repositories.PaymentStore
	admissions repositories.AdmissionStore
	gw         gateway.Client
}

func NewService(payments repositories.PaymentStore, admissions repositories.AdmissionStore, gw gateway.Client) *Service {
	return &Service{payments: payments, admissions: admissions, gw: gw}
}

// InitiateResult is returned to the client so it can redirect the
// applicant to the gateway's hosted checkout page.
type InitiateResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
}

// InitiatePayment resolves the session, applicant and program, computes
// the fee from program configuration (never from client input), asks the
// gateway for a transaction, and persists the pending record keyed by the
// returned reference. The record carries applicant/session/program
// locally so reconciliation never depends on the gateway echoing
// metadata back intact.
func (s *Service) InitiatePayment(ctx context.Context, applicantUserID, programID int64, typ payment.Type) (*InitiateResult, error) {
	if !payment.ValidType(typ) {
		return nil, fmt.Errorf("%w: unknown payment type %q", payment.ErrNotFound, typ)
	}

	sess, err := s.admissions.CurrentSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("no active admission session: %w", err)
	}
	applicant, err := s.admissions.FindApplicant(ctx, applicantUserID)
	if err != nil {
		return nil, fmt.Errorf("applicant %d: %w", applicantUserID, err)
	}
	program, err := s.admissions.FindProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("program %d: %w", programID, err)
	}

	fee, err := program.FeeFor(typ)
	if err != nil {
		return nil, err
	}

	init, err := s.gw.Initialize(ctx, applicant.Email, fee, gateway.Metadata{
		ApplicantUserID: applicant.ID,
		SessionID:       sess.ID,
		ProgramID:       program.ID,
		PaymentType:     string(typ),
	})
	if err != nil {
		return nil, err
	}

	rec, err := payment.NewRecord(init.Reference, applicant.ID, sess.ID, program.ID, fee, typ)
	if err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, rec); err != nil {
		if errors.Is(err, payment.ErrDuplicateReference) {
			// References are gateway-generated; a collision means something
			// upstream replayed an initialization. Fail closed.
			log.Error().
				Str("reference", init.Reference).
				Int64("applicant_user_id", applicant.ID).
				Msg("gateway issued a reference we already hold")
		}
		return nil, err
	}

	log.Info().
		Str("reference", rec.Reference).
		Int64("applicant_user_id", applicant.ID).
		Int64("program_id", program.ID).
		Int64("amount", int64(fee)).
		Str("payment_type", string(typ)).
		Msg("payment initialized")

	return &InitiateResult{Reference: init.Reference, AuthorizationURL: init.AuthorizationURL}, nil
}

// Reconcile converts one confirmation event into at most one state
// transition. The conditional update runs FIRST and the application side
// effect SECOND: only the caller whose update applied owns the
// transition, so concurrent webhook+verify races cannot double-create.
func (s *Service) Reconcile(ctx context.Context, reference string, amount payment.Money, paidAt *time.Time, confirmed bool) (payment.Outcome, error) {
	rec, err := s.payments.FindByReference(ctx, reference)
	if errors.Is(err, payment.ErrNotFound) {
		// The gateway should never report a reference we never created.
		log.Warn().Str("reference", reference).Msg("confirmation for unknown reference")
		return payment.OutcomeUnknownReference, nil
	}
	if err != nil {
		return "", err
	}

	if !confirmed {
		applied, err := s.payments.UpdateStatusIfPending(ctx, reference, payment.StatusFailed, 0, nil)
		if err != nil {
			return "", err
		}
		if !applied {
			return payment.OutcomeAlreadyProcessed, nil
		}
		log.Info().Str("reference", reference).Msg("payment marked failed")
		return payment.OutcomeMarkedFailed, nil
	}

	if amount > 0 && amount != rec.Amount {
		log.Warn().
			Str("reference", reference).
			Int64("requested_amount", int64(rec.Amount)).
			Int64("confirmed_amount", int64(amount)).
			Msg("gateway-confirmed amount differs from requested amount")
	}

	applied, err := s.payments.UpdateStatusIfPending(ctx, reference, payment.StatusPaid, amount, paidAt)
	if err != nil {
		return "", err
	}
	if !applied {
		// Common case for webhook-after-verify (or the reverse) races.
		return payment.OutcomeAlreadyProcessed, nil
	}

	// This call owns the transition: create the application exactly once.
	appID, err := s.admissions.CreateApplication(ctx, rec.ApplicantUserID, rec.SessionID, rec.ProgramID)
	if err != nil {
		log.Error().Err(err).
			Str("reference", reference).
			Int64("applicant_user_id", rec.ApplicantUserID).
			Msg("payment marked paid but application creation failed")
		return payment.OutcomeMarkedPaid, fmt.Errorf("create application for %s: %w", reference, err)
	}
	if err := s.payments.SetApplicationID(ctx, reference, appID); err != nil {
		return payment.OutcomeMarkedPaid, err
	}

	log.Info().
		Str("reference", reference).
		Int64("application_id", appID).
		Int64("amount", int64(amount)).
		Msg("payment marked paid, application created")
	return payment.OutcomeMarkedPaid, nil
}

// VerifyAndReconcile re-derives the truth from the gateway and feeds it
// through Reconcile once. Caller-supplied amounts or statuses are never
// trusted on this path. A gateway error leaves the record untouched:
// falsely failing a successful payment is worse than leaving it pending.
func (s *Service) VerifyAndReconcile(ctx context.Context, reference string) (payment.Outcome, *payment.Record, error) {
	rec, err := s.payments.FindByReference(ctx, reference)
	if errors.Is(err, payment.ErrNotFound) {
		log.Warn().Str("reference", reference).Msg("verification requested for unknown reference")
		return payment.OutcomeUnknownReference, nil, nil
	}
	if err != nil {
		return "", nil, err
	}

	vr, err := s.gw.Verify(ctx, reference)
	if err != nil {
		return "", nil, err
	}

	if md := vr.Metadata; md.ApplicantUserID != 0 && md.ApplicantUserID != rec.ApplicantUserID {
		// Echoed metadata is a cross-check, not a source of truth.
		log.Warn().
			Str("reference", reference).
			Int64("stored_applicant", rec.ApplicantUserID).
			Int64("echoed_applicant", md.ApplicantUserID).
			Msg("gateway metadata does not match stored record")
	}

	if !vr.Settled() {
		// Still processing on the gateway side; no confirmation happened,
		// so nothing transitions and the record stays pending.
		log.Info().Str("reference", reference).Str("raw_status", vr.RawStatus).Msg("transaction not yet settled")
		return payment.OutcomeAlreadyProcessed, rec, nil
	}

	outcome, err := s.Reconcile(ctx, reference, vr.Amount, vr.PaidAt, vr.Confirmed)
	if err != nil {
		return outcome, nil, err
	}
	fresh, ferr := s.payments.FindByReference(ctx, reference)
	if ferr != nil {
		return outcome, nil, ferr
	}
	return outcome, fresh, nil
}
