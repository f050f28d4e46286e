// Package metrics registers the bot's Prometheus collectors. They are
// served by the HTTP transport at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Signals by outcome: accepted, dedup, exposure, price_ceiling,
	// position_exists, simulated, rejected, error.
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinalbot_signals_total",
			Help: "Signals received, split by handling outcome",
		},
		[]string{"outcome"},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinalbot_orders_submitted_total",
			Help: "Entry orders submitted to the exchange",
		},
		[]string{"type", "side"},
	)

	// Exit orders by kind: tp1, tp2, trailing, break_even.
	ExitOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinalbot_exit_orders_total",
			Help: "Exit orders submitted, split by kind",
		},
		[]string{"kind"},
	)

	ExitOrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinalbot_exit_order_failures_total",
			Help: "Exit order submissions rejected by the exchange",
		},
		[]string{"kind"},
	)

	StreamReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sinalbot_stream_reconnects_total",
			Help: "User-data stream reconnect attempts",
		},
	)

	KeepaliveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sinalbot_keepalive_failures_total",
			Help: "Listen-key keepalive calls that failed",
		},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sinalbot_open_positions",
			Help: "Positions currently tracked by the state store",
		},
	)
)

func init() {
	prometheus.MustRegister(Signals, OrdersSubmitted)
	prometheus.MustRegister(ExitOrders, ExitOrderFailures)
	prometheus.MustRegister(StreamReconnects, KeepaliveFailures, OpenPositions)
}
