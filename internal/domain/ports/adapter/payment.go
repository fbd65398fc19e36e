package adapter

import "context"

// InitializeRequest is what the gateway needs to open a checkout session.
// Amount is in minor units.
type InitializeRequest struct {
	Email       string
	Amount      int64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

type InitializeResult struct {
	CheckoutURL       string
	AccessCode        string
	ProviderReference string
}

// GatewayStatus is the provider's own view of a transaction. Status is the raw
// provider vocabulary (e.g. "success", "abandoned"); mapping happens in the domain.
type GatewayStatus struct {
	Status            string
	ProviderReference string
	Amount            int64
	Currency          string
	GatewayResponse   string
}

// PaymentGateway is the hex port for the external card/bank gateway.
type PaymentGateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*GatewayStatus, error)
	// VerifySignature checks a webhook body against the provider signature header.
	VerifySignature(payload []byte, signature string) bool
}
