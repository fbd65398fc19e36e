package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/repository"
	"sportshub-payments/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

const (
	revenueMonths    = 6
	topCustomerCount = 10
)

type StatsUseCase interface {
	GetRevenueStats(ctx context.Context) (*model.RevenueStats, error)
}

type statsUC struct {
	stats    repository.PaymentStatsRepository
	currency model.Currency
	now      func() time.Time

	log *zerolog.Logger
}

func NewStatsUseCase(stats repository.PaymentStatsRepository, currency model.Currency, logger *zerolog.Logger) *statsUC {
	if c, err := model.ParseCurrency(string(currency)); err == nil {
		currency = c
	} else {
		currency = model.CurrencyNGN
	}
	return &statsUC{stats: stats, currency: currency, now: func() time.Time { return time.Now().UTC() }, log: logger}
}

// GetRevenueStats aggregates SUCCESSFUL payments only. Minor units become
// major-unit decimals here and nowhere earlier.
func (s *statsUC) GetRevenueStats(ctx context.Context) (*model.RevenueStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.GetRevenueStats")()

	total, err := s.stats.SumSuccessful(ctx, repository.NoTX, s.currency)
	if err != nil {
		return nil, err
	}
	byType, err := s.stats.SumSuccessfulByType(ctx, repository.NoTX, s.currency)
	if err != nil {
		return nil, err
	}

	months := trailingMonths(s.now(), revenueMonths)
	sums, err := s.stats.SumSuccessfulByMonth(ctx, repository.NoTX, s.currency, months[0])
	if err != nil {
		return nil, err
	}
	top, err := s.stats.TopCustomers(ctx, repository.NoTX, s.currency, topCustomerCount)
	if err != nil {
		return nil, err
	}

	out := &model.RevenueStats{
		Currency:       s.currency,
		TotalRevenue:   model.FromMinorUnits(total, s.currency),
		RevenueByType:  make(map[model.PaymentType]decimal.Decimal, 2),
		MonthlyRevenue: make([]model.MonthlyRevenue, 0, len(months)),
		TopCustomers:   make([]model.TopCustomer, 0, len(top)),
	}
	for _, t := range []model.PaymentType{model.PaymentTypeAdvertisement, model.PaymentTypeDonation} {
		out.RevenueByType[t] = model.FromMinorUnits(byType[t], s.currency)
	}

	bucket := make(map[string]int64, len(sums))
	for _, m := range sums {
		bucket[m.Month.UTC().Format("2006-01")] += m.Minor
	}
	for _, m := range months {
		key := m.Format("2006-01")
		out.MonthlyRevenue = append(out.MonthlyRevenue, model.MonthlyRevenue{
			Month:   key,
			Revenue: model.FromMinorUnits(bucket[key], s.currency),
		})
	}

	for _, c := range top {
		out.TopCustomers = append(out.TopCustomers, model.TopCustomer{
			UserID:       c.UserID,
			Email:        c.Email,
			Name:         c.Name,
			TotalSpent:   model.FromMinorUnits(c.Minor, s.currency),
			PaymentCount: c.Count,
		})
	}
	return out, nil
}

// trailingMonths returns the first instant of each of the last n calendar
// months, oldest first, ending with the current partial month.
func trailingMonths(now time.Time, n int) []time.Time {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, -(n - 1 - i), 0)
	}
	return out
}
