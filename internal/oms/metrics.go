package oms

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the OMS surface, declared as package vars and
// registered in init (mirrors the teacher's metrics.go convention).
var (
	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oms_orders_placed_total",
			Help: "Total orders placed by the OMS, labeled by broker state on placement.",
		},
		[]string{"state"},
	)

	ordersTerminal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oms_orders_terminal_total",
			Help: "Total orders that reached a terminal state, labeled by state.",
		},
		[]string{"state"},
	)

	orderLatencyMs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oms_order_latency_ms",
			Help: "Latency in milliseconds between order request and terminal status, per client_order_id.",
		},
		[]string{"client_order_id"},
	)

	brokerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oms_broker_errors_total",
			Help: "Total broker adapter errors, labeled by operation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(ordersPlaced, ordersTerminal, orderLatencyMs, brokerErrors)
}

func recordPlaced(state string) {
	ordersPlaced.WithLabelValues(state).Inc()
}

func recordTerminal(state string) {
	ordersTerminal.WithLabelValues(state).Inc()
}

func recordLatency(clientOrderID string, latencyMs float64) {
	orderLatencyMs.WithLabelValues(clientOrderID).Set(latencyMs)
}

func recordBrokerError(op string) {
	brokerErrors.WithLabelValues(op).Inc()
}
