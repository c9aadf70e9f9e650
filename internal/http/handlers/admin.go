package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"admitpay/internal/domain/payment"
	"admitpay/internal/store/repositories"
)

// ListPayments lets support staff inspect an applicant's payment trail.
func ListPayments(store repositories.PaymentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicantID, err := strconv.ParseInt(r.URL.Query().Get("applicant"), 10, 64)
		if err != nil || applicantID <= 0 {
			http.Error(w, "applicant query param required", http.StatusBadRequest)
			return
		}
		limit := 50
		offset := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		recs, err := store.ListByApplicant(r.Context(), applicantID, limit, offset)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		out := make([]*recordJSON, 0, len(recs))
		for _, rec := range recs {
			out = append(out, toRecordJSON(rec))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": out})
	}
}

type requeryReq struct {
	Reference string `json:"reference"`
}

// RequeryPayment forces a re-verification of one reference, same path the
// background worker takes. Used by support when a payer disputes status.
func RequeryPayment(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in requeryReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Reference == "" {
			http.Error(w, "reference required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		outcome, rec, err := engine.VerifyAndReconcile(ctx, in.Reference)
		if err != nil {
			http.Error(w, "requery failed", http.StatusBadGateway)
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
