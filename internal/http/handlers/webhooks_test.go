package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admitpay/internal/config"
	"admitpay/internal/domain/payment"
	"admitpay/internal/services/reconcile"
)

// fakeEngine records the last Reconcile call and returns scripted answers.
type fakeEngine struct {
	initiateFn func(ctx context.Context, applicantUserID, programID int64, typ payment.Type) (*reconcile.InitiateResult, error)
	verifyFn   func(ctx context.Context, reference string) (payment.Outcome, *payment.Record, error)

	reconcileOutcome payment.Outcome
	reconcileErr     error
	calls            int
	lastReference    string
	lastAmount       payment.Money
	lastConfirmed    bool
	lastPaidAt       *time.Time
}

func (f *fakeEngine) InitiatePayment(ctx context.Context, applicantUserID, programID int64, typ payment.Type) (*reconcile.InitiateResult, error) {
	if f.initiateFn == nil {
		return &reconcile.InitiateResult{Reference: "ref-001", AuthorizationURL: "https://gw.test/pay"}, nil
	}
	return f.initiateFn(ctx, applicantUserID, programID, typ)
}

func (f *fakeEngine) Reconcile(ctx context.Context, reference string, amount payment.Money, paidAt *time.Time, confirmed bool) (payment.Outcome, error) {
	f.calls++
	f.lastReference = reference
	f.lastAmount = amount
	f.lastConfirmed = confirmed
	f.lastPaidAt = paidAt
	if f.reconcileErr != nil {
		return "", f.reconcileErr
	}
	if f.reconcileOutcome == "" {
		return payment.OutcomeMarkedPaid, nil
	}
	return f.reconcileOutcome, nil
}

func (f *fakeEngine) VerifyAndReconcile(ctx context.Context, reference string) (payment.Outcome, *payment.Record, error) {
	if f.verifyFn == nil {
		return payment.OutcomeUnknownReference, nil, nil
	}
	return f.verifyFn(ctx, reference)
}

const testWebhookSecret = "whsec_test"

func webhookCfg() config.GatewayCfg {
	return config.GatewayCfg{WebhookSecret: testWebhookSecret}
}

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, h http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	engine := &fakeEngine{}
	h := GatewayWebhook(engine, webhookCfg())
	body := []byte(`{"event":"charge.success","data":{"reference":"r1","amount":5000}}`)

	if w := postWebhook(t, h, body, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing signature: expected 401, got %d", w.Code)
	}
	if w := postWebhook(t, h, body, "deadbeef"); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong signature: expected 401, got %d", w.Code)
	}
	if engine.calls != 0 {
		t.Fatal("engine must not run for unauthenticated payloads")
	}
}

func TestWebhookChargeSuccess(t *testing.T) {
	engine := &fakeEngine{reconcileOutcome: payment.OutcomeMarkedPaid}
	h := GatewayWebhook(engine, webhookCfg())
	body := []byte(`{"event":"charge.success","data":{"reference":"r1","amount":4999,"status":"success","paid_at":"2026-02-14T09:30:00Z"}}`)

	w := postWebhook(t, h, body, signBody(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if engine.calls != 1 || engine.lastReference != "r1" {
		t.Fatalf("engine not invoked correctly: %+v", engine)
	}
	if !engine.lastConfirmed {
		t.Fatal("charge.success must reconcile as confirmed")
	}
	if engine.lastAmount != 4999 {
		t.Fatalf("payload amount not forwarded, got %d", engine.lastAmount)
	}
	if engine.lastPaidAt == nil || engine.lastPaidAt.UTC().Hour() != 9 {
		t.Fatalf("paid_at not parsed: %v", engine.lastPaidAt)
	}
}

func TestWebhookOtherEventIsUnconfirmed(t *testing.T) {
	engine := &fakeEngine{reconcileOutcome: payment.OutcomeMarkedFailed}
	h := GatewayWebhook(engine, webhookCfg())
	body := []byte(`{"event":"charge.failed","data":{"reference":"r1","status":"failed"}}`)

	w := postWebhook(t, h, body, signBody(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if engine.lastConfirmed {
		t.Fatal("non-success event must reconcile as unconfirmed")
	}
}

func TestWebhookDuplicateDeliveryStillOK(t *testing.T) {
	engine := &fakeEngine{reconcileOutcome: payment.OutcomeAlreadyProcessed}
	h := GatewayWebhook(engine, webhookCfg())
	body := []byte(`{"event":"charge.success","data":{"reference":"r1","amount":5000}}`)

	// 200 stops the gateway's retry loop for a payload we already handled.
	if w := postWebhook(t, h, body, signBody(body)); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWebhookUnknownReferenceStillOK(t *testing.T) {
	engine := &fakeEngine{reconcileOutcome: payment.OutcomeUnknownReference}
	h := GatewayWebhook(engine, webhookCfg())
	body := []byte(`{"event":"charge.success","data":{"reference":"ghost","amount":5000}}`)

	if w := postWebhook(t, h, body, signBody(body)); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWebhookBadPayload(t *testing.T) {
	engine := &fakeEngine{}
	h := GatewayWebhook(engine, webhookCfg())

	body := []byte(`{"event":"charge.success","data":{}}`)
	if w := postWebhook(t, h, body, signBody(body)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing reference: expected 400, got %d", w.Code)
	}
	body = []byte(`not json`)
	if w := postWebhook(t, h, body, signBody(body)); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", w.Code)
	}
	if engine.calls != 0 {
		t.Fatal("engine must not run for malformed payloads")
	}
}

func TestWebhookInternalFailure(t *testing.T) {
	engine := &fakeEngine{reconcileErr: errors.New("db down")}
	h := GatewayWebhook(engine, webhookCfg())
	body := []byte(`{"event":"charge.success","data":{"reference":"r1","amount":5000}}`)

	// 500 so the gateway retries the delivery later.
	if w := postWebhook(t, h, body, signBody(body)); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
