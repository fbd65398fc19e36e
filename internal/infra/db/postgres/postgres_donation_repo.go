package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/repository"
)

var _ repository.DonationRepository = (*donationRepo)(nil)

type donationRepo struct{ pool *pgxpool.Pool }

func NewDonationRepo(pool *pgxpool.Pool) *donationRepo {
	return &donationRepo{pool: pool}
}

func (r *donationRepo) Acknowledge(ctx context.Context, tx repository.Tx, d *model.Donation) (bool, error) {
	if d.AcknowledgedAt.IsZero() {
		d.AcknowledgedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO patron_donations (payment_id, user_id, subscription_id, amount, currency, acknowledged_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (payment_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, d.PaymentID, d.UserID, d.SubscriptionID, d.Amount, string(d.Currency), d.AcknowledgedAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *donationRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Donation, error) {
	const q = `SELECT payment_id, user_id, subscription_id, amount, currency, acknowledged_at FROM patron_donations WHERE payment_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	d := &model.Donation{}
	if err := row.Scan(&d.PaymentID, &d.UserID, &d.SubscriptionID, &d.Amount, &d.Currency, &d.AcknowledgedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}
