package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"    // created; awaiting gateway confirmation
	PaymentStatusSuccessful PaymentStatus = "SUCCESSFUL" // confirmed by verify or webhook
	PaymentStatusFailed     PaymentStatus = "FAILED"     // gateway said failed/abandoned, or verify errored
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"   // only reachable from SUCCESSFUL
)

// CanTransitionTo reports whether the forward-only state machine allows s -> next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusSuccessful || next == PaymentStatusFailed
	case PaymentStatusSuccessful:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// IsTerminal is true for every status except PENDING.
func (s PaymentStatus) IsTerminal() bool { return s != PaymentStatusPending }

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentType string

const (
	PaymentTypeAdvertisement PaymentType = "ADVERTISEMENT"
	PaymentTypeDonation      PaymentType = "DONATION"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypeAdvertisement || t == PaymentTypeDonation
}

type Provider string

const ProviderPaystack Provider = "paystack"

// Payment is the durable record of one monetary event. Reference is the
// idempotency key shared with the gateway; it never changes once assigned.
type Payment struct {
	ID                string
	Reference         string
	UserID            string
	Amount            int64 // minor units, exactly as sent to the gateway
	Currency          Currency
	Type              PaymentType
	Status            PaymentStatus
	Provider          Provider
	ProviderReference *string // gateway transaction id, set on PENDING -> SUCCESSFUL
	AdCampaignID      *string
	SubscriptionID    *string
	CustomerEmail     string
	CustomerName      string
	CustomerPhone     *string
	IPAddress         string
	UserAgent         string
	Metadata          map[string]any
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsRefundable is true only for SUCCESSFUL payments.
func (p *Payment) IsRefundable() bool {
	return p != nil && p.Status == PaymentStatusSuccessful
}

// MajorAmount is the amount in major units for UI callers and reports.
func (p *Payment) MajorAmount() string {
	return FromMinorUnits(p.Amount, p.Currency).StringFixed(p.Currency.Exponent())
}

// Validate checks the creation-time invariants.
func (p *Payment) Validate() error {
	if p.Reference == "" || p.UserID == "" {
		return fmt.Errorf("payment: reference and user are required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("payment: amount must be positive, got %d", p.Amount)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("payment: unknown type %q", p.Type)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("payment: unknown status %q", p.Status)
	}
	if p.CustomerEmail == "" {
		return fmt.Errorf("payment: customer email is required")
	}
	switch p.Type {
	case PaymentTypeAdvertisement:
		if p.AdCampaignID == nil || *p.AdCampaignID == "" || p.SubscriptionID != nil {
			return fmt.Errorf("payment: advertisement payments link exactly one ad campaign")
		}
	case PaymentTypeDonation:
		if p.AdCampaignID != nil {
			return fmt.Errorf("payment: donations cannot link an ad campaign")
		}
	}
	return nil
}

// NewReference returns PAY-<unix millis>-<16 chars of ulid entropy>.
func NewReference(now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	return fmt.Sprintf("PAY-%d-%s", now.UnixMilli(), id.String()[10:])
}

// gatewayStatusTable is closed; anything not listed is still in flight.
var gatewayStatusTable = map[string]PaymentStatus{
	"success":   PaymentStatusSuccessful,
	"failed":    PaymentStatusFailed,
	"abandoned": PaymentStatusFailed,
}

// MapGatewayStatus maps provider vocabulary onto the internal enum.
// Unknown values map to PENDING so vocabulary drift never fails a payment.
func MapGatewayStatus(providerStatus string) PaymentStatus {
	if st, ok := gatewayStatusTable[providerStatus]; ok {
		return st
	}
	return PaymentStatusPending
}
