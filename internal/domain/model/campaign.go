package model

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft          CampaignStatus = "DRAFT"
	CampaignStatusPendingPayment CampaignStatus = "PENDING_PAYMENT"
	CampaignStatusActive         CampaignStatus = "ACTIVE"
	CampaignStatusPaused         CampaignStatus = "PAUSED"
	CampaignStatusCompleted      CampaignStatus = "COMPLETED"
)

// AdCampaign is the slice of the advertising domain that payments fund.
type AdCampaign struct {
	ID        string
	OwnerID   string
	Title     string
	Status    CampaignStatus
	UpdatedAt time.Time
}

// IsPayable is true while the campaign still waits for its funding.
func (c *AdCampaign) IsPayable() bool {
	return c != nil && (c.Status == CampaignStatusDraft || c.Status == CampaignStatusPendingPayment)
}

// Donation is the acknowledgment row written once per successful donation payment.
type Donation struct {
	PaymentID      string
	UserID         string
	SubscriptionID *string
	Amount         int64
	Currency       Currency
	AcknowledgedAt time.Time
}
