package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"admitpay/internal/domain/payment"
	"admitpay/internal/gateway"
	"admitpay/internal/services/reconcile"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Engine is the slice of the reconciliation service the handlers need.
// Narrowed to an interface so handler tests can substitute a fake.
type Engine interface {
	InitiatePayment(ctx context.Context, applicantUserID, programID int64, typ payment.Type) (*reconcile.InitiateResult, error)
	Reconcile(ctx context.Context, reference string, amount payment.Money, paidAt *time.Time, confirmed bool) (payment.Outcome, error)
	VerifyAndReconcile(ctx context.Context, reference string) (payment.Outcome, *payment.Record, error)
}

type initializeReq struct {
	ApplicantUserID int64  `json:"applicantUserId"`
	ProgramID       int64  `json:"programId"`
	PaymentType     string `json:"paymentType"`
}

func InitializePayment(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in initializeReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if in.ApplicantUserID <= 0 || in.ProgramID <= 0 || in.PaymentType == "" {
			http.Error(w, "missing applicantUserId/programId/paymentType", http.StatusBadRequest)
			return
		}

		// Short, bounded context around the gateway round trip.
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		out, err := engine.InitiatePayment(ctx, in.ApplicantUserID, in.ProgramID, payment.Type(in.PaymentType))
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrNotFound):
				http.Error(w, "unknown applicant, program or no active session", http.StatusBadRequest)
			case errors.Is(err, gateway.ErrUnavailable):
				// No record was persisted; the client may safely retry.
				http.Error(w, "payment gateway unavailable, please retry", http.StatusBadGateway)
			default:
				log.Error().Err(err).
					Int64("applicant_user_id", in.ApplicantUserID).
					Int64("program_id", in.ProgramID).
					Msg("payment initialization failed")
				http.Error(w, "payment initialization failed", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// recordJSON is the wire shape of a payment record; never leaks internals.
type recordJSON struct {
	Reference       string     `json:"reference"`
	ApplicantUserID int64      `json:"applicantUserId"`
	SessionID       int64      `json:"sessionId"`
	ProgramID       int64      `json:"programId"`
	Amount          int64      `json:"amount"`
	PaymentType     string     `json:"paymentType"`
	Status          string     `json:"status"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
	ApplicationID   *int64     `json:"applicationId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toRecordJSON(rec *payment.Record) *recordJSON {
	if rec == nil {
		return nil
	}
	return &recordJSON{
		Reference:       rec.Reference,
		ApplicantUserID: rec.ApplicantUserID,
		SessionID:       rec.SessionID,
		ProgramID:       rec.ProgramID,
		Amount:          int64(rec.Amount),
		PaymentType:     string(rec.Type),
		Status:          string(rec.Status),
		PaidAt:          rec.PaidAt,
		ApplicationID:   rec.ApplicationID,
		CreatedAt:       rec.CreatedAt,
	}
}

// VerifyPayment serves the client flow returning from the gateway's
// hosted checkout page. It reports the same reconciled outcome the
// webhook path would produce.
func VerifyPayment(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := chi.URLParam(r, "reference")
		if reference == "" {
			http.Error(w, "missing reference", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		outcome, rec, err := engine.VerifyAndReconcile(ctx, reference)
		if err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				// Record untouched; the payer can retry or contact support.
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":     "verification temporarily unavailable, payment left pending",
					"reference": reference,
				})
				return
			}
			log.Error().Err(err).Str("reference", reference).Msg("verification failed")
			http.Error(w, "verification failed", http.StatusInternalServerError)
			return
		}
		if outcome == payment.OutcomeUnknownReference {
			http.Error(w, "unknown reference", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outcome": outcome,
			"record":  toRecordJSON(rec),
		})
	}
}
