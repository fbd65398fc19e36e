package payment

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"sync"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev mode and tests.
// Every initialized reference verifies as "success" unless scripted otherwise.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	secret   string
	intents  map[string]int64  // reference -> amount (minor units)
	statuses map[string]string // reference -> scripted provider status
	failNext error
}

func NewNoopPaymentGateway(secret string) *NoopPaymentGateway {
	return &NoopPaymentGateway{
		secret:   secret,
		intents:  make(map[string]int64),
		statuses: make(map[string]string),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

// SetStatus scripts the provider status Verify returns for reference.
func (g *NoopPaymentGateway) SetStatus(reference, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[reference] = status
}

// FailNext makes the next Initialize or Verify call return err.
func (g *NoopPaymentGateway) FailNext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = err
}

func (g *NoopPaymentGateway) takeFailure() error {
	err := g.failNext
	g.failNext = nil
	return err
}

func (g *NoopPaymentGateway) Initialize(ctx context.Context, in adapter.InitializeRequest) (*adapter.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	g.seq++
	g.intents[in.Reference] = in.Amount
	code := fmt.Sprintf("noop-%d", g.seq)
	return &adapter.InitializeResult{
		CheckoutURL:       "https://example.test/pay/" + code,
		AccessCode:        code,
		ProviderReference: in.Reference,
	}, nil
}

func (g *NoopPaymentGateway) Verify(ctx context.Context, reference string) (*adapter.GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	amount, ok := g.intents[reference]
	if !ok {
		return nil, fmt.Errorf("%w: noop: reference %s not found", domain.ErrGateway, reference)
	}
	status := "success"
	if s, ok := g.statuses[reference]; ok {
		status = s
	}
	return &adapter.GatewayStatus{
		Status:            status,
		ProviderReference: "noop-trx-" + reference,
		Amount:            amount,
		GatewayResponse:   "Approved",
	}, nil
}

func (g *NoopPaymentGateway) VerifySignature(payload []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || signature == "" {
		return false
	}
	return hmac.Equal(got, Sign(g.secret, payload))
}
