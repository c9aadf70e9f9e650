package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admitpay/internal/domain/payment"
	"admitpay/internal/gateway"
	"admitpay/internal/services/reconcile"

	"github.com/go-chi/chi/v5"
)

func TestInitializePaymentOK(t *testing.T) {
	engine := &fakeEngine{}
	h := InitializePayment(engine)

	req := httptest.NewRequest(http.MethodPost, "/payments/initialize",
		strings.NewReader(`{"applicantUserId":42,"programId":3,"paymentType":"application_fee"}`))
	w := httptest.NewRecorder()
	h(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out reconcile.InitiateResult
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Reference != "ref-001" || out.AuthorizationURL == "" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestInitializePaymentValidation(t *testing.T) {
	h := InitializePayment(&fakeEngine{})

	cases := []string{
		`not json`,
		`{"programId":3,"paymentType":"application_fee"}`,
		`{"applicantUserId":42,"paymentType":"application_fee"}`,
		`{"applicantUserId":42,"programId":3}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/payments/initialize", strings.NewReader(body))
		w := httptest.NewRecorder()
		h(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestInitializePaymentErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", payment.ErrNotFound, http.StatusBadRequest},
		{"gateway down", gateway.ErrUnavailable, http.StatusBadGateway},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := &fakeEngine{
				initiateFn: func(ctx context.Context, applicantUserID, programID int64, typ payment.Type) (*reconcile.InitiateResult, error) {
					return nil, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/payments/initialize",
				strings.NewReader(`{"applicantUserId":42,"programId":3,"paymentType":"application_fee"}`))
			w := httptest.NewRecorder()
			InitializePayment(engine)(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func verifyRequest(reference string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/payments/verify/"+reference, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("reference", reference)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestVerifyPaymentOK(t *testing.T) {
	now := time.Now()
	engine := &fakeEngine{
		verifyFn: func(ctx context.Context, reference string) (payment.Outcome, *payment.Record, error) {
			return payment.OutcomeMarkedPaid, &payment.Record{
				Reference:       reference,
				ApplicantUserID: 42,
				Amount:          5000,
				Type:            payment.TypeApplicationFee,
				Status:          payment.StatusPaid,
				PaidAt:          &now,
			}, nil
		},
	}
	w := httptest.NewRecorder()
	VerifyPayment(engine)(w, verifyRequest("ref-001"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Outcome string      `json:"outcome"`
		Record  *recordJSON `json:"record"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Outcome != string(payment.OutcomeMarkedPaid) {
		t.Fatalf("unexpected outcome %q", out.Outcome)
	}
	if out.Record == nil || out.Record.Status != "paid" || out.Record.Amount != 5000 {
		t.Fatalf("unexpected record: %+v", out.Record)
	}
}

func TestVerifyPaymentUnknownReference(t *testing.T) {
	engine := &fakeEngine{} // defaults to UnknownReference
	w := httptest.NewRecorder()
	VerifyPayment(engine)(w, verifyRequest("ghost"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestVerifyPaymentGatewayDown(t *testing.T) {
	engine := &fakeEngine{
		verifyFn: func(ctx context.Context, reference string) (payment.Outcome, *payment.Record, error) {
			return "", nil, gateway.ErrUnavailable
		},
	}
	w := httptest.NewRecorder()
	VerifyPayment(engine)(w, verifyRequest("ref-001"))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["reference"] != "ref-001" || out["error"] == "" {
		t.Fatalf("unexpected body: %v", out)
	}
}
