package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for the checkout workflow. Outcome labels are
// low-cardinality by construction (fixed enum values only).
type Metrics struct {
	CheckoutOutcomes *prometheus.CounterVec
	PaymentEvents    *prometheus.CounterVec
	SweeperCancelled prometheus.Counter
}

const (
	OutcomeCreated     = "created"
	OutcomeReplayed    = "replayed"
	OutcomeConflict    = "conflict"
	OutcomeValidation  = "validation_error"
	OutcomeGatewayDown = "gateway_error"
	OutcomeFailure     = "failure"
)

const (
	EventApplied   = "applied"
	EventDuplicate = "duplicate"
)

func New(namespace string) *Metrics {
	return &Metrics{
		CheckoutOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_outcomes_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		PaymentEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment gateway webhook events by status and application result.",
		}, []string{"status", "result"}),
		SweeperCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_cancelled_bookings_total",
			Help:      "Pending bookings cancelled by the expiry sweeper.",
		}),
	}
}
