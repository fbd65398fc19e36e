package repository

import (
	"context"

	"sportshub-payments/internal/domain/model"
)

// -----------------------------
// Funded entities
// -----------------------------

type AdCampaignRepository interface {
	Save(ctx context.Context, tx Tx, c *model.AdCampaign) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.AdCampaign, error)
	// Activate moves a DRAFT or PENDING_PAYMENT campaign to ACTIVE and reports
	// whether the row changed. Already-active campaigns are not an error.
	Activate(ctx context.Context, tx Tx, id string) (bool, error)
}

type DonationRepository interface {
	// Acknowledge records the donation once per payment id; repeats are no-ops.
	Acknowledge(ctx context.Context, tx Tx, d *model.Donation) (bool, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Donation, error)
}
