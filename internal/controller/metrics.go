package controller

// Prometheus metrics the cycle loop updates directly, served by cmd/agent's
// status server at /metrics via promhttp.Handler() against the default
// registry. Naming follows chidi150c-coinbase's metrics.go convention
// (one file, package-level vars, registered in init() via promauto).
import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyagent_cycles_total",
		Help: "Total cycles completed by the controller.",
	})

	metricBankrollUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyagent_bankroll_usd",
		Help: "Bankroll balance at the end of the most recent cycle.",
	})

	metricAPICostPerCycle = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polyagent_api_cost_per_cycle_usd",
		Help:    "Estimator API spend per cycle, in USD.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	metricOpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyagent_opportunities_detected_total",
		Help: "Total edge opportunities detected across all cycles.",
	})

	metricTradesPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyagent_trades_placed_total",
		Help: "Total trades placed across all cycles.",
	})
)
