// File: internal/infra/adapters/payment/paystack_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// PaystackGateway implements adapter.PaymentGateway over the Paystack REST API.
type PaystackGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystackGateway(secretKey, baseURL string, timeout time.Duration) (*PaystackGateway, error) {
	if secretKey == "" {
		return nil, errors.New("paystack secret key empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid paystack base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (g *PaystackGateway) Name() string { return string(model.ProviderPaystack) }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (g *PaystackGateway) do(ctx context.Context, method, path string, body any) (*paystackEnvelope, error) {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	var env paystackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrGateway, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return nil, fmt.Errorf("%w: http %d: %s", domain.ErrGateway, resp.StatusCode, env.Message)
	}
	return &env, nil
}

// Initialize calls POST /transaction/initialize. Amount is minor units.
func (g *PaystackGateway) Initialize(ctx context.Context, in adapter.InitializeRequest) (*adapter.InitializeResult, error) {
	payload := map[string]any{
		"email":        in.Email,
		"amount":       in.Amount,
		"currency":     in.Currency,
		"reference":    in.Reference,
		"callback_url": in.CallbackURL,
	}
	if in.Metadata != nil {
		payload["metadata"] = in.Metadata
	}
	env, err := g.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode initialize data: %v", domain.ErrGateway, err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize returned no authorization url", domain.ErrGateway)
	}
	return &adapter.InitializeResult{
		CheckoutURL:       data.AuthorizationURL,
		AccessCode:        data.AccessCode,
		ProviderReference: data.Reference,
	}, nil
}

// Verify calls GET /transaction/verify/:reference.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*adapter.GatewayStatus, error) {
	env, err := g.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		ID              int64  `json:"id"`
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode verify data: %v", domain.ErrGateway, err)
	}
	return &adapter.GatewayStatus{
		Status:            data.Status,
		ProviderReference: fmt.Sprintf("%d", data.ID),
		Amount:            data.Amount,
		Currency:          data.Currency,
		GatewayResponse:   data.GatewayResponse,
	}, nil
}

// VerifySignature compares the hex HMAC-SHA512 of payload, keyed with the
// secret key, against signature in constant time.
func (g *PaystackGateway) VerifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(g.secretKey, payload))
}

// Sign returns the raw HMAC-SHA512 of payload.
func Sign(secret string, payload []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
