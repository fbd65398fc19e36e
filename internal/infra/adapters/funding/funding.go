// Package funding adapts the ad campaign and donation tables to the narrow
// collaborator ports the payment dispatcher calls.
package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
	"sportshub-payments/internal/domain/ports/repository"
)

var (
	_ adapter.CampaignActivator    = (*CampaignActivator)(nil)
	_ adapter.DonationAcknowledger = (*DonationAcknowledger)(nil)
)

type CampaignActivator struct {
	campaigns repository.AdCampaignRepository
	log       *zerolog.Logger
}

func NewCampaignActivator(campaigns repository.AdCampaignRepository, logger *zerolog.Logger) *CampaignActivator {
	l := logger.With().Str("component", "CampaignActivator").Logger()
	return &CampaignActivator{campaigns: campaigns, log: &l}
}

// Activate moves the campaign to ACTIVE. A campaign that is already past
// PENDING_PAYMENT is left alone and is not an error.
func (a *CampaignActivator) Activate(ctx context.Context, campaignID string) error {
	changed, err := a.campaigns.Activate(ctx, repository.NoTX, campaignID)
	if err != nil {
		return fmt.Errorf("activate campaign %s: %w", campaignID, err)
	}
	if changed {
		a.log.Info().Str("campaign_id", campaignID).Msg("campaign activated")
		return nil
	}
	c, err := a.campaigns.FindByID(ctx, repository.NoTX, campaignID)
	if err != nil {
		return fmt.Errorf("activate campaign %s: %w", campaignID, err)
	}
	a.log.Warn().Str("campaign_id", campaignID).Str("status", string(c.Status)).Msg("campaign not in a payable state; left unchanged")
	return nil
}

type DonationAcknowledger struct {
	donations repository.DonationRepository
	log       *zerolog.Logger
}

func NewDonationAcknowledger(donations repository.DonationRepository, logger *zerolog.Logger) *DonationAcknowledger {
	l := logger.With().Str("component", "DonationAcknowledger").Logger()
	return &DonationAcknowledger{donations: donations, log: &l}
}

func (a *DonationAcknowledger) Acknowledge(ctx context.Context, p *model.Payment) error {
	if p == nil || p.Type != model.PaymentTypeDonation {
		return domain.ErrInvalidArgument
	}
	inserted, err := a.donations.Acknowledge(ctx, repository.NoTX, &model.Donation{
		PaymentID:      p.ID,
		UserID:         p.UserID,
		SubscriptionID: p.SubscriptionID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		AcknowledgedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("acknowledge donation %s: %w", p.ID, err)
	}
	if !inserted {
		a.log.Info().Str("payment_id", p.ID).Msg("donation already acknowledged")
	}
	return nil
}
