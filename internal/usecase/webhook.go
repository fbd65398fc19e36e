package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
	"sportshub-payments/internal/infra/logging"
	"sportshub-payments/internal/infra/metrics"
)

// Gateway webhook event names.
const (
	EventChargeSuccess   = "charge.success"
	EventChargeFailed    = "charge.failed"
	EventTransferSuccess = "transfer.success"
	EventTransferFailed  = "transfer.failed"
)

// SignatureVerifier is the only authenticity gate for webhooks: an empty or
// mismatching signature rejects the delivery before the body is parsed.
type SignatureVerifier struct {
	gateway adapter.PaymentGateway
}

func NewSignatureVerifier(gateway adapter.PaymentGateway) *SignatureVerifier {
	return &SignatureVerifier{gateway: gateway}
}

func (v *SignatureVerifier) Verify(payload []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return domain.ErrAuthentication
	}
	if !v.gateway.VerifySignature(payload, signature) {
		return domain.ErrAuthentication
	}
	return nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// HandleWebhook authenticates and applies one gateway delivery. Deliveries are
// at-least-once, so every branch is safe to repeat. Only authentication and
// storage failures are returned; business outcomes are logged and absorbed.
func (u *paymentUC) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := u.signatures.Verify(payload, signature); err != nil {
		u.log.Warn().Int("bytes", len(payload)).Msg("webhook rejected: bad signature")
		metrics.IncWebhookEvent("", "rejected")
		return err
	}

	var ev webhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		u.log.Warn().Err(err).Msg("webhook body is not valid json; ignored")
		metrics.IncWebhookEvent("", "ignored")
		return nil
	}
	if ev.Data.Reference != "" {
		ctx = logging.WithReference(ctx, ev.Data.Reference)
	}
	log := logging.With(ctx, u.log)

	var (
		result string
		err    error
	)
	switch ev.Event {
	case EventChargeSuccess:
		result, err = u.onChargeSuccess(ctx, &ev)
	case EventChargeFailed:
		result, err = u.onChargeFailed(ctx, &ev)
	case EventTransferSuccess, EventTransferFailed:
		log.Info().Str("event", ev.Event).Msg("payout event received; not handled here")
		result = "ignored"
	default:
		log.Warn().Str("event", ev.Event).Msg("unrecognized webhook event; ignored")
		metrics.IncWebhookEvent("unknown", "ignored")
		return nil
	}

	if err != nil {
		log.Error().Err(err).Str("event", ev.Event).Msg("webhook processing failed")
		metrics.IncWebhookEvent(ev.Event, "error")
		return err
	}
	metrics.IncWebhookEvent(ev.Event, result)
	return nil
}

func (u *paymentUC) onChargeSuccess(ctx context.Context, ev *webhookEvent) (string, error) {
	log := logging.With(ctx, u.log)

	p, err := u.payments.FindByReference(ctx, nil, ev.Data.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn().Msg("charge.success for unknown reference; ignored")
		return "ignored", nil
	}
	if err != nil {
		return "", err
	}

	if p.Status.IsTerminal() {
		if p.Status != model.PaymentStatusSuccessful {
			log.Warn().Str("status", string(p.Status)).Msg("charge.success after terminal status; not resurrected")
		} else {
			log.Info().Msg("charge.success already applied; no-op")
		}
		return "noop", nil
	}

	if reason := chargeMismatch(p, ev.Data.Amount, ev.Data.Currency); reason != "" {
		log.Error().
			Str("reason", reason).
			Int64("expected_amount", p.Amount).Int64("got_amount", ev.Data.Amount).
			Str("expected_currency", string(p.Currency)).Str("got_currency", ev.Data.Currency).
			Msg("charge.success does not match payment; not credited")
		return "rejected", nil
	}

	var providerRef string
	if ev.Data.ID != 0 {
		providerRef = strconv.FormatInt(ev.Data.ID, 10)
	}
	applied, _, err := u.settle(ctx, p, model.PaymentStatusSuccessful, providerRef)
	if err != nil {
		return "", err
	}
	if !applied {
		return "noop", nil
	}
	return "applied", nil
}

func (u *paymentUC) onChargeFailed(ctx context.Context, ev *webhookEvent) (string, error) {
	p, err := u.payments.FindByReference(ctx, nil, ev.Data.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, u.log).Warn().Msg("charge.failed for unknown reference; ignored")
		return "ignored", nil
	}
	if err != nil {
		return "", err
	}
	if p.Status.IsTerminal() {
		return "noop", nil
	}
	applied, _, err := u.settle(ctx, p, model.PaymentStatusFailed, "")
	if err != nil {
		return "", err
	}
	if !applied {
		return "noop", nil
	}
	return "applied", nil
}
