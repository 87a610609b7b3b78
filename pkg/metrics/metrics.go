// Package metrics exposes Prometheus instrumentation for simulation runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tianji_orders_validated_total",
			Help: "Orders passed through the rule validator",
		},
		[]string{"side", "result", "reason"},
	)

	tradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tianji_trades_executed_total",
			Help: "Orders executed and committed to the ledger",
		},
		[]string{"side"},
	)

	execFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tianji_execution_failures_total",
			Help: "Validator-accepted orders that failed at commit time",
		},
		[]string{"reason"},
	)

	backtestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tianji_backtest_runs_total",
			Help: "Completed backtest runs",
		},
		[]string{"status"},
	)

	currentEquity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tianji_equity",
			Help: "Mark-to-market equity of the in-progress run",
		},
	)
)

// RecordValidation counts a validator decision.
func RecordValidation(side string, accepted bool, reason string) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	ordersValidated.WithLabelValues(side, result, reason).Inc()
}

// RecordTrade counts a committed trade.
func RecordTrade(side string) {
	tradesExecuted.WithLabelValues(side).Inc()
}

// RecordExecFailure counts a commit-time failure.
func RecordExecFailure(reason string) {
	execFailures.WithLabelValues(reason).Inc()
}

// RecordRun counts a finished run ("ok" or "invalid").
func RecordRun(status string) {
	backtestRuns.WithLabelValues(status).Inc()
}

// SetEquity updates the live equity gauge.
func SetEquity(v float64) {
	currentEquity.Set(v)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts the metrics endpoint on addr (blocking).
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
