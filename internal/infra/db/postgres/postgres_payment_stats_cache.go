package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/repository"
	"sportshub-payments/internal/infra/metrics"
	red "sportshub-payments/internal/infra/redis"
)

var _ repository.PaymentStatsRepository = (*paymentStatsCacheDecorator)(nil)

// paymentStatsCacheDecorator caches aggregate query results with a short TTL.
// It only wraps the reporting side; authoritative payment rows are never cached.
type paymentStatsCacheDecorator struct {
	inner repository.PaymentStatsRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPaymentStatsCacheDecorator(inner repository.PaymentStatsRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PaymentStatsRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &paymentStatsCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

// cached reads key into out; on a miss it calls load, stores the result and
// copies it into out.
func cached[T any](ctx context.Context, d *paymentStatsCacheDecorator, name, key string, out *T, load func() (T, error)) error {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		if json.Unmarshal([]byte(val), out) == nil {
			metrics.IncCacheRequest(name, "hit")
			return nil
		}
		metrics.IncCacheRequest(name, "miss")
	} else if err != redis.Nil {
		d.log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		metrics.IncCacheRequest(name, "error")
	} else {
		metrics.IncCacheRequest(name, "miss")
	}

	v, err := load()
	if err != nil {
		return err
	}
	*out = v
	if b, err := json.Marshal(v); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return nil
}

func (d *paymentStatsCacheDecorator) SumSuccessful(ctx context.Context, tx repository.Tx, currency model.Currency) (int64, error) {
	var out int64
	err := cached(ctx, d, "revenue_total", fmt.Sprintf("stats:revenue:total:%s", currency), &out, func() (int64, error) {
		return d.inner.SumSuccessful(ctx, tx, currency)
	})
	return out, err
}

func (d *paymentStatsCacheDecorator) SumSuccessfulByType(ctx context.Context, tx repository.Tx, currency model.Currency) (map[model.PaymentType]int64, error) {
	var out map[model.PaymentType]int64
	err := cached(ctx, d, "revenue_by_type", fmt.Sprintf("stats:revenue:type:%s", currency), &out, func() (map[model.PaymentType]int64, error) {
		return d.inner.SumSuccessfulByType(ctx, tx, currency)
	})
	return out, err
}

func (d *paymentStatsCacheDecorator) SumSuccessfulByMonth(ctx context.Context, tx repository.Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error) {
	var out []model.MonthlySum
	key := fmt.Sprintf("stats:revenue:monthly:%s:%s", currency, since.UTC().Format("2006-01"))
	err := cached(ctx, d, "revenue_monthly", key, &out, func() ([]model.MonthlySum, error) {
		return d.inner.SumSuccessfulByMonth(ctx, tx, currency, since)
	})
	return out, err
}

func (d *paymentStatsCacheDecorator) TopCustomers(ctx context.Context, tx repository.Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error) {
	var out []model.CustomerSpend
	err := cached(ctx, d, "top_customers", fmt.Sprintf("stats:top:%s:%d", currency, limit), &out, func() ([]model.CustomerSpend, error) {
		return d.inner.TopCustomers(ctx, tx, currency, limit)
	})
	return out, err
}
