package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentVerifyRequests,
		paymentVerifyDuration,
		paymentWebhookEvents,
		paymentDispatchTotal,
	)
}

var (
	// result: ok|fail
	// reason: successful|pending|failed|refunded|not_found|gateway_error|unknown
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of payment verifications by result and reason.",
		},
		[]string{"result", "reason"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	// result: applied|noop|rejected|ignored|error
	paymentWebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Gateway webhook deliveries by event and handling result.",
		},
		[]string{"event", "result"},
	)

	// type: advertisement|donation, result: ok|error
	paymentDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_dispatch_total",
			Help: "Post-payment side effects by payment type and result.",
		},
		[]string{"type", "result"},
	)
)

func ObserveVerify(result, reason string, d time.Duration) {
	paymentVerifyRequests.WithLabelValues(norm(result), norm(reason)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(result)).Observe(d.Seconds())
}

func IncWebhookEvent(event, result string) {
	if event == "" {
		event = "unknown"
	}
	paymentWebhookEvents.WithLabelValues(norm(event), norm(result)).Inc()
}

func IncDispatch(paymentType, result string) {
	paymentDispatchTotal.WithLabelValues(norm(paymentType), norm(result)).Inc()
}
