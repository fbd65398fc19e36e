package adapter

import (
	"context"

	"sportshub-payments/internal/domain/model"
)

// CampaignActivator is the narrow write path into the advertising domain.
type CampaignActivator interface {
	Activate(ctx context.Context, campaignID string) error
}

// DonationAcknowledger records a completed donation for patronage tracking.
type DonationAcknowledger interface {
	Acknowledge(ctx context.Context, p *model.Payment) error
}
