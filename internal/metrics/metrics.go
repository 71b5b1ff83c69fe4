// internal/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_orders_created_total",
			Help: "Gateway orders opened, by outcome",
		},
		[]string{"outcome"},
	)

	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verifications_total",
			Help: "Payment verifications, by outcome",
		},
		[]string{"outcome"},
	)

	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_gateway_request_seconds",
			Help:    "Time taken by the payment gateway to open an order",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway"},
	)

	CreditedAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_credited_amount_total",
			Help: "Smallest currency units credited to wallets, by entry type",
		},
		[]string{"type"},
	)

	LedgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_ledger_retries_total",
			Help: "Verification transactions replayed after a serialization failure or lock timeout",
		},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_notifications_dropped_total",
			Help: "Earning notifications that could not be delivered",
		},
	)
)

// Verification outcomes.
const (
	OutcomeCompleted        = "completed"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRejected         = "rejected"
	OutcomeError            = "error"
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			OrdersCreated,
			Verifications,
			GatewayLatency,
			CreditedAmount,
			LedgerRetries,
			NotificationsDropped,
		)
	})
}
