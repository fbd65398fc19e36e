//go:build !integration

package postgres

import (
	"context"
	"time"

	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/repository"
	red "sportshub-payments/internal/infra/redis"
)

// mockInnerStatsRepo mocks the aggregate queries the stats decorator wraps.
type mockInnerStatsRepo struct {
	SumSuccessfulFunc        func(ctx context.Context, tx repository.Tx, currency model.Currency) (int64, error)
	SumSuccessfulByTypeFunc  func(ctx context.Context, tx repository.Tx, currency model.Currency) (map[model.PaymentType]int64, error)
	SumSuccessfulByMonthFunc func(ctx context.Context, tx repository.Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error)
	TopCustomersFunc         func(ctx context.Context, tx repository.Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error)
}

var _ repository.PaymentStatsRepository = (*mockInnerStatsRepo)(nil)

func (m *mockInnerStatsRepo) SumSuccessful(ctx context.Context, tx repository.Tx, currency model.Currency) (int64, error) {
	return m.SumSuccessfulFunc(ctx, tx, currency)
}
func (m *mockInnerStatsRepo) SumSuccessfulByType(ctx context.Context, tx repository.Tx, currency model.Currency) (map[model.PaymentType]int64, error) {
	return m.SumSuccessfulByTypeFunc(ctx, tx, currency)
}
func (m *mockInnerStatsRepo) SumSuccessfulByMonth(ctx context.Context, tx repository.Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error) {
	return m.SumSuccessfulByMonthFunc(ctx, tx, currency, since)
}
func (m *mockInnerStatsRepo) TopCustomers(ctx context.Context, tx repository.Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error) {
	return m.TopCustomersFunc(ctx, tx, currency, limit)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
