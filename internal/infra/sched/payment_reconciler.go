package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"sportshub-payments/internal/infra/metrics"
	"sportshub-payments/internal/infra/redis"
	"sportshub-payments/internal/infra/worker"
	"sportshub-payments/internal/usecase"
)

const reconcilerLockKey = "lock:payment-reconciler"

// PaymentReconciler periodically re-verifies payments left PENDING longer than
// staleAfter. This covers a lost webhook, a browser that never came back from
// checkout, or a crash between gateway initialize and the first verify. Each
// verify goes through PaymentUseCase.VerifyPayment, so it can never dispatch
// twice. A redis lock keeps concurrent replicas from sweeping the same batch.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	pool       *worker.Pool
	locker     redis.Locker
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	batchSize  int
	log        *zerolog.Logger
}

func NewPaymentReconciler(
	uc usecase.PaymentUseCase,
	pool *worker.Pool,
	locker redis.Locker,
	interval, staleAfter time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:         uc,
		pool:       pool,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		log:        &l,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("reconciler started")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reconciler stopped")
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one sweep.
func (w *PaymentReconciler) Tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, reconcilerLockKey, w.interval)
		if err != nil {
			if errors.Is(err, redis.ErrLockHeld) {
				w.log.Debug().Msg("another replica holds the sweep lock; skipping")
			} else {
				w.log.Warn().Err(err).Msg("sweep lock unavailable; skipping")
			}
			metrics.IncReconcilerRun("skipped")
			return
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), reconcilerLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("sweep lock release failed")
			}
		}()
	}

	cutoff := time.Now().Add(-w.staleAfter)
	n, err := w.uc.ReconcileStale(ctx, cutoff, w.batchSize, func(task func(ctx context.Context) error) error {
		return w.pool.Submit(worker.Task(task))
	})
	if err != nil {
		w.log.Error().Err(err).Msg("list stale payments failed")
		metrics.IncReconcilerRun("failed")
		return
	}
	if n > 0 {
		w.log.Info().Int("scheduled", n).Time("cutoff", cutoff).Msg("stale payments scheduled for verification")
	}
	metrics.IncReconcilerRun("completed")
}
