package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(reconcilerRunsTotal, reconcilerPaymentsTotal) }

var (
	reconcilerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_runs_total",
			Help: "Stale payment sweeps, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'skipped', 'failed'
	)

	reconcilerPaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_payments_total",
			Help: "Stale payments re-verified by the reconciler, labeled by resulting status.",
		},
		[]string{"status"},
	)
)

func IncReconcilerRun(status string) {
	reconcilerRunsTotal.WithLabelValues(norm(status)).Inc()
}

func IncReconciledPayment(status string) {
	reconcilerPaymentsTotal.WithLabelValues(norm(status)).Inc()
}
