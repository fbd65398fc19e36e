package repository

import (
	"context"
	"time"

	"sportshub-payments/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Payment, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)

	// TransitionStatus moves the payment identified by reference to `to`, but only
	// while its persisted status is one of `from`. It reports whether this call
	// performed the write; exactly one concurrent caller can win a given transition.
	// providerRef and paidAt are only written when non-nil.
	TransitionStatus(ctx context.Context, tx Tx, reference string, from []model.PaymentStatus, to model.PaymentStatus, providerRef *string, paidAt *time.Time) (bool, error)
}

// PaymentStatsRepository is the read side used for reporting. Every query
// counts SUCCESSFUL payments only and returns minor units.
type PaymentStatsRepository interface {
	SumSuccessful(ctx context.Context, tx Tx, currency model.Currency) (int64, error)
	SumSuccessfulByType(ctx context.Context, tx Tx, currency model.Currency) (map[model.PaymentType]int64, error)
	SumSuccessfulByMonth(ctx context.Context, tx Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error)
	TopCustomers(ctx context.Context, tx Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error)
}
