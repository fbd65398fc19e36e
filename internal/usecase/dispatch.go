package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
	"sportshub-payments/internal/infra/logging"
	"sportshub-payments/internal/infra/metrics"
)

// Dispatcher runs the post-payment side effect for a payment that just reached
// SUCCESSFUL. It does not guard against repeats; callers only invoke it after
// winning the PENDING -> SUCCESSFUL transition.
type Dispatcher struct {
	campaigns adapter.CampaignActivator
	donations adapter.DonationAcknowledger
	log       *zerolog.Logger
}

func NewDispatcher(campaigns adapter.CampaignActivator, donations adapter.DonationAcknowledger, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{campaigns: campaigns, donations: donations, log: logger}
}

// Dispatch never returns an error: the payment is already SUCCESSFUL and a
// failed activation is reconciled out of band.
func (d *Dispatcher) Dispatch(ctx context.Context, p *model.Payment) {
	log := logging.With(ctx, d.log)

	var err error
	switch p.Type {
	case model.PaymentTypeAdvertisement:
		if p.AdCampaignID == nil {
			log.Error().Str("payment_id", p.ID).Msg("advertisement payment without campaign link; nothing to activate")
			metrics.IncDispatch(string(p.Type), "error")
			return
		}
		err = d.campaigns.Activate(ctx, *p.AdCampaignID)
	case model.PaymentTypeDonation:
		err = d.donations.Acknowledge(ctx, p)
	default:
		log.Error().Str("payment_id", p.ID).Str("type", string(p.Type)).Msg("unknown payment type; no side effect")
		metrics.IncDispatch(string(p.Type), "error")
		return
	}

	if err != nil {
		log.Error().Err(err).Str("payment_id", p.ID).Str("type", string(p.Type)).Msg("post-payment side effect failed")
		metrics.IncDispatch(string(p.Type), "error")
		return
	}
	metrics.IncDispatch(string(p.Type), "ok")
	log.Info().Str("payment_id", p.ID).Str("type", string(p.Type)).Msg("post-payment side effect done")
}
