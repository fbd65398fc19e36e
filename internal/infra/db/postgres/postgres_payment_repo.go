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

var (
	_ repository.PaymentRepository      = (*paymentRepo)(nil)
	_ repository.PaymentStatsRepository = (*paymentRepo)(nil)
)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, user_id, amount, currency, type, status, provider, provider_reference,
  ad_campaign_id, subscription_id, customer_email, customer_name, customer_phone, ip_address, user_agent,
  metadata, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.Reference, &p.UserID, &p.Amount, &p.Currency, &p.Type, &p.Status, &p.Provider, &p.ProviderReference,
		&p.AdCampaignID, &p.SubscriptionID, &p.CustomerEmail, &p.CustomerName, &p.CustomerPhone, &p.IPAddress, &p.UserAgent,
		&p.Metadata, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// Save inserts a new payment. Status changes never go through Save; see TransitionStatus.
func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
) ON CONFLICT (reference) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Reference, p.UserID, p.Amount, string(p.Currency), string(p.Type), string(p.Status), string(p.Provider), p.ProviderReference,
		p.AdCampaignID, p.SubscriptionID, p.CustomerEmail, p.CustomerName, p.CustomerPhone, p.IPAddress, p.UserAgent,
		p.Metadata, p.PaidAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if isTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	if isTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	return r.list(ctx, tx, q, userID, offset, limit)
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='PENDING' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	out := make([]*model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// TransitionStatus is a single conditional UPDATE. Postgres re-checks the WHERE
// clause against the latest row version after waiting on a concurrent writer,
// so two racing callers cannot both see RowsAffected()==1.
func (r *paymentRepo) TransitionStatus(
	ctx context.Context, tx repository.Tx, reference string, from []model.PaymentStatus, to model.PaymentStatus, providerRef *string, paidAt *time.Time,
) (bool, error) {
	if len(from) == 0 {
		return false, domain.ErrInvalidArgument
	}
	fromStr := make([]string, 0, len(from))
	for _, s := range from {
		if !s.CanTransitionTo(to) {
			return false, domain.ErrInvalidState
		}
		fromStr = append(fromStr, string(s))
	}

	const q = `
UPDATE payments
   SET status = $3,
       provider_reference = COALESCE($4, provider_reference),
       paid_at = COALESCE($5, paid_at),
       updated_at = NOW()
 WHERE reference = $1
   AND status = ANY($2)`

	cmd, err := execSQL(ctx, r.pool, tx, q, reference, fromStr, string(to), providerRef, paidAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

// ----- reporting -----

func (r *paymentRepo) SumSuccessful(ctx context.Context, tx repository.Tx, currency model.Currency) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='SUCCESSFUL' AND currency=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, string(currency))
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentRepo) SumSuccessfulByType(ctx context.Context, tx repository.Tx, currency model.Currency) (map[model.PaymentType]int64, error) {
	const q = `SELECT type, COALESCE(SUM(amount),0) FROM payments WHERE status='SUCCESSFUL' AND currency=$1 GROUP BY type;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(currency))
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	out := make(map[model.PaymentType]int64)
	for rows.Next() {
		var (
			typ string
			sum int64
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.PaymentType(typ)] = sum
	}
	return out, rows.Err()
}

func (r *paymentRepo) SumSuccessfulByMonth(ctx context.Context, tx repository.Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error) {
	const q = `
SELECT date_trunc('month', COALESCE(paid_at, updated_at) AT TIME ZONE 'UTC') AS month, SUM(amount)
  FROM payments
 WHERE status='SUCCESSFUL' AND currency=$1 AND COALESCE(paid_at, updated_at) >= $2
 GROUP BY month
 ORDER BY month ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(currency), since)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []model.MonthlySum
	for rows.Next() {
		var ms model.MonthlySum
		if err := rows.Scan(&ms.Month, &ms.Minor); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ms.Month = ms.Month.UTC()
		out = append(out, ms)
	}
	return out, rows.Err()
}

// TopCustomers is one grouped query; payer names come from the same join.
func (r *paymentRepo) TopCustomers(ctx context.Context, tx repository.Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT p.user_id,
       COALESCE(u.email, MAX(p.customer_email)),
       COALESCE(u.name, MAX(p.customer_name)),
       SUM(p.amount) AS total,
       COUNT(*)
  FROM payments p
  LEFT JOIN users u ON u.id = p.user_id
 WHERE p.status='SUCCESSFUL' AND p.currency=$1
 GROUP BY p.user_id, u.email, u.name
 ORDER BY total DESC, p.user_id ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(currency), limit)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []model.CustomerSpend
	for rows.Next() {
		var c model.CustomerSpend
		if err := rows.Scan(&c.UserID, &c.Email, &c.Name, &c.Minor, &c.Count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
