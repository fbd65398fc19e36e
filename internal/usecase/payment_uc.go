// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
	"sportshub-payments/internal/domain/ports/repository"
	"sportshub-payments/internal/infra/logging"
	"sportshub-payments/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	CreateAdvertisementPayment(ctx context.Context, in CreateAdvertisementInput) (*CreatePaymentResult, error)
	CreateDonationPayment(ctx context.Context, in CreateDonationInput) (*CreatePaymentResult, error)
	// VerifyPayment is the browser-redirect completion path.
	VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error)
	// HandleWebhook is the gateway push completion path.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	RefundPayment(ctx context.Context, id string) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Payment, error)
	// ReconcileStale re-verifies PENDING payments created before cutoff. Each
	// verification is handed to run; the first error from run ends the sweep.
	ReconcileStale(ctx context.Context, cutoff time.Time, limit int, run func(task func(ctx context.Context) error) error) (int, error)
}

// Payer is the request metadata captured for audit.
type Payer struct {
	UserID        string
	CustomerEmail string
	CustomerName  string
	CustomerPhone *string
	IPAddress     string
	UserAgent     string
}

type CreateAdvertisementInput struct {
	Payer
	AdCampaignID string
	Amount       decimal.Decimal // major units
	Currency     model.Currency  // empty uses the configured default
	Metadata     map[string]any
}

type CreateDonationInput struct {
	Payer
	SubscriptionID *string
	Amount         decimal.Decimal
	Currency       model.Currency
	Metadata       map[string]any
}

type CreatePaymentResult struct {
	Payment    *model.Payment
	PaymentURL string
	Reference  string
}

type VerifyResult struct {
	Payment      *model.Payment
	IsSuccessful bool
	Message      string
}

type PaymentOptions struct {
	CallbackURL     string
	DefaultCurrency model.Currency
	GatewayTimeout  time.Duration
	Dev             bool
}

type paymentUC struct {
	payments   repository.PaymentRepository
	campaigns  repository.AdCampaignRepository
	users      repository.UserRepository
	gateway    adapter.PaymentGateway
	signatures *SignatureVerifier
	dispatcher *Dispatcher
	opts       PaymentOptions
	now        func() time.Time

	log *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	campaigns repository.AdCampaignRepository,
	users repository.UserRepository,
	gateway adapter.PaymentGateway,
	dispatcher *Dispatcher,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if c, err := model.ParseCurrency(string(opts.DefaultCurrency)); err == nil {
		opts.DefaultCurrency = c
	} else {
		opts.DefaultCurrency = model.CurrencyNGN
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "PaymentUseCase").Logger()
	return &paymentUC{
		payments:   payments,
		campaigns:  campaigns,
		users:      users,
		gateway:    gateway,
		signatures: NewSignatureVerifier(gateway),
		dispatcher: dispatcher,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		log:        &l,
	}
}

func (u *paymentUC) CreateAdvertisementPayment(ctx context.Context, in CreateAdvertisementInput) (*CreatePaymentResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateAdvertisementPayment")()

	if strings.TrimSpace(in.AdCampaignID) == "" {
		return nil, fmt.Errorf("%w: adCampaignId is required", domain.ErrInvalidArgument)
	}
	c, err := u.campaigns.FindByID(ctx, nil, in.AdCampaignID)
	if err != nil {
		return nil, fmt.Errorf("ad campaign %s: %w", in.AdCampaignID, err)
	}
	if !c.IsPayable() {
		return nil, fmt.Errorf("%w: ad campaign %s is %s", domain.ErrInvalidState, c.ID, c.Status)
	}

	campaignID := c.ID
	return u.create(ctx, in.Payer, model.PaymentTypeAdvertisement, in.Amount, in.Currency, in.Metadata, func(p *model.Payment) {
		p.AdCampaignID = &campaignID
	})
}

func (u *paymentUC) CreateDonationPayment(ctx context.Context, in CreateDonationInput) (*CreatePaymentResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateDonationPayment")()

	if _, err := u.users.FindByID(ctx, nil, in.UserID); err != nil {
		return nil, fmt.Errorf("patron %s: %w", in.UserID, err)
	}
	var subID *string
	if in.SubscriptionID != nil && strings.TrimSpace(*in.SubscriptionID) != "" {
		s := strings.TrimSpace(*in.SubscriptionID)
		subID = &s
	}
	return u.create(ctx, in.Payer, model.PaymentTypeDonation, in.Amount, in.Currency, in.Metadata, func(p *model.Payment) {
		p.SubscriptionID = subID
	})
}

// create persists a PENDING payment and opens a gateway checkout for it. If
// the gateway call fails the row stays PENDING for later verification.
func (u *paymentUC) create(
	ctx context.Context, payer Payer, typ model.PaymentType, amount decimal.Decimal, currency model.Currency,
	meta map[string]any, link func(*model.Payment),
) (*CreatePaymentResult, error) {
	if currency == "" {
		currency = u.opts.DefaultCurrency
	}
	parsed, err := model.ParseCurrency(string(currency))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	// Revenue reporting is kept in one currency.
	if parsed != u.opts.DefaultCurrency {
		return nil, fmt.Errorf("%w: currency %s is not accepted, use %s", domain.ErrInvalidArgument, parsed, u.opts.DefaultCurrency)
	}
	currency = parsed
	minor, err := model.ToMinorUnits(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	now := u.now()
	p := &model.Payment{
		ID:            uuid.NewString(),
		Reference:     model.NewReference(now),
		UserID:        payer.UserID,
		Amount:        minor,
		Currency:      currency,
		Type:          typ,
		Status:        model.PaymentStatusPending,
		Provider:      model.Provider(u.gateway.Name()),
		CustomerEmail: strings.TrimSpace(payer.CustomerEmail),
		CustomerName:  strings.TrimSpace(payer.CustomerName),
		CustomerPhone: payer.CustomerPhone,
		IPAddress:     payer.IPAddress,
		UserAgent:     payer.UserAgent,
		Metadata:      meta,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	link(p)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	ctx = logging.WithReference(ctx, p.Reference)
	log := logging.With(ctx, u.log)

	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	metrics.IncPayment("initiated")
	log.Info().
		Str("type", string(typ)).
		Int64("amount_minor", minor).
		Str("currency", string(currency)).
		Str("email", logging.Redact(p.CustomerEmail, u.opts.Dev)).
		Msg("payment created")

	gctx, cancel := context.WithTimeout(ctx, u.opts.GatewayTimeout)
	defer cancel()
	res, err := u.gateway.Initialize(gctx, adapter.InitializeRequest{
		Email:       p.CustomerEmail,
		Amount:      p.Amount,
		Currency:    string(p.Currency),
		Reference:   p.Reference,
		CallbackURL: callbackWithReference(u.opts.CallbackURL, p.Reference),
		Metadata:    gatewayMetadata(p),
	})
	if err != nil {
		log.Error().Err(err).Msg("gateway initialize failed; payment left PENDING")
		return nil, asGatewayError(err)
	}

	return &CreatePaymentResult{Payment: p, PaymentURL: res.CheckoutURL, Reference: p.Reference}, nil
}

func (u *paymentUC) VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.VerifyPayment")()
	start := time.Now()
	ctx = logging.WithReference(ctx, reference)
	log := logging.With(ctx, u.log)

	p, err := u.payments.FindByReference(ctx, nil, reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveVerify("fail", "not_found", time.Since(start))
		}
		return nil, fmt.Errorf("payment %s: %w", reference, err)
	}

	// Already terminal: never call the gateway again and never re-dispatch.
	if p.Status.IsTerminal() {
		metrics.ObserveVerify("ok", string(p.Status), time.Since(start))
		return verifyResult(p), nil
	}

	gctx, cancel := context.WithTimeout(ctx, u.opts.GatewayTimeout)
	defer cancel()
	st, gwErr := u.gateway.Verify(gctx, reference)
	if gwErr != nil {
		log.Error().Err(gwErr).Msg("gateway verify failed; failing payment")
		_, cur, err := u.settle(ctx, p, model.PaymentStatusFailed, "")
		if err != nil {
			return nil, err
		}
		// A concurrent webhook may have completed it first.
		if cur.Status == model.PaymentStatusSuccessful {
			metrics.ObserveVerify("ok", string(cur.Status), time.Since(start))
			return verifyResult(cur), nil
		}
		metrics.ObserveVerify("fail", "gateway_error", time.Since(start))
		return verifyResult(cur), asGatewayError(gwErr)
	}

	target := model.MapGatewayStatus(st.Status)
	if target == model.PaymentStatusSuccessful {
		if reason := chargeMismatch(p, st.Amount, st.Currency); reason != "" {
			log.Error().
				Str("reason", reason).
				Int64("expected_amount", p.Amount).Int64("got_amount", st.Amount).
				Str("expected_currency", string(p.Currency)).Str("got_currency", st.Currency).
				Msg("gateway charge does not match payment; not credited")
			metrics.ObserveVerify("fail", reason, time.Since(start))
			return &VerifyResult{Payment: p, Message: "Payment amount does not match; contact support with reference " + p.Reference}, nil
		}
	}

	_, cur, err := u.settle(ctx, p, target, st.ProviderReference)
	if err != nil {
		return nil, err
	}
	metrics.ObserveVerify("ok", string(cur.Status), time.Since(start))
	return verifyResult(cur), nil
}

// settle is the single state-transition function shared by verify, webhook and
// reconciler paths. The conditional update in the store decides the winner;
// only the winner of PENDING -> SUCCESSFUL dispatches side effects. It returns
// whether this call applied the change and the payment as currently persisted.
func (u *paymentUC) settle(ctx context.Context, p *model.Payment, target model.PaymentStatus, providerRef string) (bool, *model.Payment, error) {
	if target == model.PaymentStatusPending || target == p.Status {
		return false, p, nil
	}

	var (
		refPtr *string
		paidAt *time.Time
	)
	if target == model.PaymentStatusSuccessful {
		now := u.now()
		paidAt = &now
		if providerRef != "" {
			refPtr = &providerRef
		}
	}

	applied, err := u.payments.TransitionStatus(ctx, nil, p.Reference,
		[]model.PaymentStatus{model.PaymentStatusPending}, target, refPtr, paidAt)
	if err != nil {
		return false, p, fmt.Errorf("transition %s -> %s: %w", p.Status, target, err)
	}

	log := logging.With(ctx, u.log)
	if !applied {
		log.Info().Str("target", string(target)).Msg("transition already settled by another caller; no-op")
		cur, err := u.payments.FindByReference(ctx, nil, p.Reference)
		if err != nil {
			return false, p, err
		}
		return false, cur, nil
	}

	p.Status = target
	p.UpdatedAt = u.now()
	if refPtr != nil {
		p.ProviderReference = refPtr
	}
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	metrics.IncPayment(string(target))
	log.Info().Str("status", string(target)).Msg("payment settled")

	if target == model.PaymentStatusSuccessful {
		metrics.AddPaymentRevenue(string(p.Currency), p.Amount)
		u.dispatcher.Dispatch(ctx, p)
	}
	return true, p, nil
}

func (u *paymentUC) RefundPayment(ctx context.Context, id string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", id, err)
	}
	if !p.IsRefundable() {
		return nil, fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidState, id, p.Status)
	}
	applied, err := u.payments.TransitionStatus(ctx, nil, p.Reference,
		[]model.PaymentStatus{model.PaymentStatusSuccessful}, model.PaymentStatusRefunded, nil, nil)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: payment %s was refunded concurrently", domain.ErrInvalidState, id)
	}
	p.Status = model.PaymentStatusRefunded
	p.UpdatedAt = u.now()
	metrics.IncPayment(string(model.PaymentStatusRefunded))
	logging.With(logging.WithReference(ctx, p.Reference), u.log).Info().Str("payment_id", id).Msg("payment refunded")
	return p, nil
}

func (u *paymentUC) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return u.payments.FindByID(ctx, nil, id)
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ClampPageLimit maps a requested page size onto (0, MaxPageLimit].
func ClampPageLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}

func (u *paymentUC) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Payment, error) {
	if offset < 0 {
		offset = 0
	}
	limit = ClampPageLimit(limit)
	return u.payments.ListByUser(ctx, nil, userID, offset, limit)
}

func (u *paymentUC) ReconcileStale(ctx context.Context, cutoff time.Time, limit int, run func(task func(ctx context.Context) error) error) (int, error) {
	pending, err := u.payments.ListPendingOlderThan(ctx, nil, cutoff, limit)
	if err != nil {
		return 0, err
	}
	submitted := 0
	for _, p := range pending {
		ref := p.Reference
		err := run(func(ctx context.Context) error {
			res, err := u.VerifyPayment(ctx, ref)
			if res != nil {
				metrics.IncReconciledPayment(string(res.Payment.Status))
			}
			return err
		})
		if err != nil {
			// The executor is saturated; the rest wait for the next sweep.
			u.log.Warn().Err(err).Int("scheduled", submitted).Int("deferred", len(pending)-submitted).Msg("stale sweep stopped early")
			break
		}
		submitted++
	}
	return submitted, nil
}

// chargeMismatch compares what the gateway says it collected with the stored
// payment and returns a reason when they disagree. Zero or empty reported
// values are not checked.
func chargeMismatch(p *model.Payment, amount int64, currency string) string {
	if amount != 0 && amount != p.Amount {
		return "amount_mismatch"
	}
	if currency != "" && !strings.EqualFold(currency, string(p.Currency)) {
		return "currency_mismatch"
	}
	return ""
}

func verifyResult(p *model.Payment) *VerifyResult {
	r := &VerifyResult{Payment: p, IsSuccessful: p.Status == model.PaymentStatusSuccessful}
	switch p.Status {
	case model.PaymentStatusSuccessful:
		r.Message = "Payment verified successfully"
	case model.PaymentStatusFailed:
		r.Message = "Payment not confirmed; contact support with reference " + p.Reference
	case model.PaymentStatusRefunded:
		r.Message = "Payment has been refunded"
	default:
		r.Message = "Payment is still being processed"
	}
	return r
}

func asGatewayError(err error) error {
	if errors.Is(err, domain.ErrGateway) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrGateway, err)
}

func callbackWithReference(base, reference string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base
	}
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String()
}

// gatewayMetadata threads the caller's bag through unchanged, plus the links
// the dashboard needs to correlate a charge.
func gatewayMetadata(p *model.Payment) map[string]any {
	out := make(map[string]any, len(p.Metadata)+3)
	for k, v := range p.Metadata {
		out[k] = v
	}
	out["payment_id"] = p.ID
	out["payment_type"] = string(p.Type)
	if p.AdCampaignID != nil {
		out["ad_campaign_id"] = *p.AdCampaignID
	}
	if p.SubscriptionID != nil {
		out["subscription_id"] = *p.SubscriptionID
	}
	return out
}
