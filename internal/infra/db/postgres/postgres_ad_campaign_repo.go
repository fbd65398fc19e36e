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

var _ repository.AdCampaignRepository = (*adCampaignRepo)(nil)

type adCampaignRepo struct{ pool *pgxpool.Pool }

func NewAdCampaignRepo(pool *pgxpool.Pool) *adCampaignRepo {
	return &adCampaignRepo{pool: pool}
}

func (r *adCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.AdCampaign) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO ad_campaigns (id, owner_id, title, status, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET owner_id=$2, title=$3, status=$4, updated_at=$5;`
	if _, err := execSQL(ctx, r.pool, tx, q, c.ID, c.OwnerID, c.Title, string(c.Status), c.UpdatedAt); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *adCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AdCampaign, error) {
	const q = `SELECT id, owner_id, title, status, updated_at FROM ad_campaigns WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	c := &model.AdCampaign{}
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Status, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func (r *adCampaignRepo) Activate(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE ad_campaigns
   SET status='ACTIVE', updated_at=NOW()
 WHERE id=$1 AND status IN ('DRAFT','PENDING_PAYMENT');`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}
