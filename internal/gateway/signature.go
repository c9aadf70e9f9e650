package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// WebhookEvent is the envelope the gateway pushes on transaction state
// changes.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Reference string   `json:"reference"`
	Amount    int64    `json:"amount"`
	Status    string   `json:"status"`
	PaidAt    string   `json:"paid_at"`
	Metadata  Metadata `json:"metadata"`
}

// EventChargeSuccess is the only event that confirms payment; every other
// event type maps to an unconfirmed outcome.
const EventChargeSuccess = "charge.success"

// ValidSignature checks the hex HMAC-SHA512 of the raw body against the
// webhook secret. Constant-time compare.
func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// ParseWebhook decodes and shape-checks a pushed event. The reference is
// the only structurally required field.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	if strings.TrimSpace(evt.Data.Reference) == "" {
		return nil, errMissingReference
	}
	return &evt, nil
}

type webhookError string

func (e webhookError) Error() string { return string(e) }

const errMissingReference = webhookError("webhook payload missing reference")
