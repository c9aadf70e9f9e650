package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"admitpay/internal/config"
	"admitpay/internal/domain/payment"
	"admitpay/internal/gateway"

	"github.com/rs/zerolog/log"
)

// SignatureHeader carries the gateway's hex HMAC-SHA512 of the raw body.
const SignatureHeader = "X-Gateway-Signature"

// GatewayWebhook receives asynchronous push notifications. The gateway
// retries on any non-2xx, so every handled outcome (including duplicate
// deliveries and unknown references) answers 200; only unexpected
// internal failures return 500.
func GatewayWebhook(engine Engine, cfg config.GatewayCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read failed", http.StatusBadRequest)
			return
		}

		if !gateway.ValidSignature(cfg.WebhookSecret, body, r.Header.Get(SignatureHeader)) {
			log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature mismatch")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		evt, err := gateway.ParseWebhook(body)
		if err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		confirmed := evt.Event == gateway.EventChargeSuccess

		var paidAt *time.Time
		if evt.Data.PaidAt != "" {
			if t, perr := time.Parse(time.RFC3339, evt.Data.PaidAt); perr == nil {
				paidAt = &t
			}
		}

		// The webhook path trusts the signed payload's own amount/paid_at,
		// unlike the explicit-verify path.
		outcome, err := engine.Reconcile(r.Context(), evt.Data.Reference, payment.Money(evt.Data.Amount), paidAt, confirmed)
		if err != nil {
			log.Error().Err(err).
				Str("reference", evt.Data.Reference).
				Str("event", evt.Event).
				Msg("webhook reconciliation failed")
			http.Error(w, "processing failed", http.StatusInternalServerError)
			return
		}

		log.Info().
			Str("reference", evt.Data.Reference).
			Str("event", evt.Event).
			Str("outcome", string(outcome)).
			Msg("webhook processed")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "outcome": outcome})
	}
}
