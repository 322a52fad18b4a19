package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout results recorded by OrderMetrics.
const (
	CheckoutStarted = "started"
	CheckoutFailed  = "failed"
	CheckoutRefused = "refused"
)

// OrderMetrics tracks cart conversion and order status movement. A nil
// *OrderMetrics records nothing.
type OrderMetrics struct {
	checkouts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	cartOps     *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return nil
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout attempts by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status transitions applied.",
	}, []string{"from", "to"})
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_operations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(checkouts, transitions, cartOps)
	return &OrderMetrics{
		checkouts:   checkouts,
		transitions: transitions,
		cartOps:     cartOps,
	}
}

// IncCheckout counts a checkout attempt with the given result.
func (m *OrderMetrics) IncCheckout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(label(result)).Inc()
}

// IncTransition counts an applied status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(label(from), label(to)).Inc()
}

// IncCartOp counts a cart mutation. outcome is "ok" or an error code.
func (m *OrderMetrics) IncCartOp(op, outcome string) {
	if m == nil {
		return
	}
	m.cartOps.WithLabelValues(label(op), label(outcome)).Inc()
}
