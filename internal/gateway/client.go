package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"admitpay/internal/config"
	"admitpay/internal/domain/payment"

	"github.com/rs/zerolog/log"
)

// HTTPClient talks to the card gateway's REST API:
//
//	POST /transaction/initialize
//	GET  /transaction/verify/{reference}
//
// All calls carry the secret key as a bearer token and run under a
// bounded timeout from config.
type HTTPClient struct {
	client    *http.Client
	baseURL   string
	secretKey string
}

func New(cfg config.GatewayCfg) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
	}
}

type initializeReq struct {
	Email    string   `json:"email"`
	Amount   int64    `json:"amount"`
	Metadata Metadata `json:"metadata"`
}

type initializeResp struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference        string `json:"reference"`
		AuthorizationURL string `json:"authorization_url"`
	} `json:"data"`
}

func (c *HTTPClient) Initialize(ctx context.Context, email string, amount payment.Money, md Metadata) (*InitializeResult, error) {
	body, err := json.Marshal(initializeReq{Email: email, Amount: int64(amount), Metadata: md})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize payload: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var out initializeResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse initialize response: %w", err)
	}
	if status != http.StatusOK || !out.Status {
		return nil, fmt.Errorf("gateway rejected initialization: %s", out.Message)
	}
	if out.Data.Reference == "" || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("gateway returned incomplete initialization data")
	}

	log.Debug().
		Str("reference", out.Data.Reference).
		Int64("amount", int64(amount)).
		Msg("gateway transaction initialized")

	return &InitializeResult{
		Reference:        out.Data.Reference,
		AuthorizationURL: out.Data.AuthorizationURL,
	}, nil
}

type verifyResp struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string   `json:"status"`
		Amount   int64    `json:"amount"`
		PaidAt   string   `json:"paid_at"`
		Metadata Metadata `json:"metadata"`
	} `json:"data"`
}

func (c *HTTPClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	respBody, status, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	// A non-200 on verify is ambiguous; never turn it into a failure signal.
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: verify returned HTTP %d", ErrUnavailable, status)
	}

	var out verifyResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse verify response: %w", err)
	}
	if !out.Status {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, out.Message)
	}

	res := &VerifyResult{
		Confirmed: out.Data.Status == "success",
		Amount:    payment.Money(out.Data.Amount),
		RawStatus: out.Data.Status,
		Metadata:  out.Data.Metadata,
	}
	if out.Data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, out.Data.PaidAt); err == nil {
			res.PaidAt = &t
		}
	}
	return res, nil
}

// do runs one request against the gateway. Transport errors and 5xx map
// to ErrUnavailable so callers can distinguish "gateway said no" from
// "gateway said nothing".
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, int, error) {
	url := c.baseURL + endpoint

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("method", method).Str("url", url).Msg("gateway request")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("gateway request failed")
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		log.Error().Int("status_code", resp.StatusCode).Str("url", url).Msg("gateway 5xx")
		return nil, resp.StatusCode, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	return respBody, resp.StatusCode, nil
}
