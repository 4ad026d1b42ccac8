// Package audit provides Prometheus metrics for the signal-to-order
// pipeline and a per-dependency degraded-mode tracker surfaced on /health.
// Metric names follow Prometheus convention: snake_case, _total for
// counters.
package audit

import "github.com/prometheus/client_golang/prometheus"

var (
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_signals_total",
			Help: "Inbound signals by outcome (accepted, duplicate, rejected).",
		},
		[]string{"outcome"},
	)

	pipelineFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_pipeline_failures_total",
			Help: "Pipeline-stage failures by stage.",
		},
		[]string{"stage"},
	)

	entryDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_entry_decisions_total",
			Help: "Entry decisions by verdict (enter, reject).",
		},
		[]string{"decision"},
	)

	exitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_exit_decisions_total",
			Help: "Exit decisions by verdict and reason.",
		},
		[]string{"decision", "reason"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_orders_total",
			Help: "Orders submitted by side and terminal status.",
		},
		[]string{"side", "status"},
	)

	openExposure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "controller_open_exposure_usd",
			Help: "Current total notional exposure across OPEN positions.",
		},
	)

	dependencyHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "controller_dependency_healthy",
			Help: "1 if the dependency is healthy, 0 if degraded.",
		},
		[]string{"dependency"},
	)
)

func init() {
	prometheus.MustRegister(signalsTotal, pipelineFailuresTotal, entryDecisionsTotal,
		exitDecisionsTotal, ordersTotal, openExposure, dependencyHealth)
}

// RecordSignal increments the inbound-signal counter for outcome.
func RecordSignal(outcome string) { signalsTotal.WithLabelValues(outcome).Inc() }

// RecordPipelineFailure increments the pipeline-failure counter for stage.
func RecordPipelineFailure(stage string) { pipelineFailuresTotal.WithLabelValues(stage).Inc() }

// RecordEntryDecision increments the entry-decision counter for decision.
func RecordEntryDecision(decision string) { entryDecisionsTotal.WithLabelValues(decision).Inc() }

// RecordExitDecision increments the exit-decision counter for decision/reason.
func RecordExitDecision(decision, reason string) {
	exitDecisionsTotal.WithLabelValues(decision, reason).Inc()
}

// RecordOrder increments the order counter for side/status.
func RecordOrder(side, status string) { ordersTotal.WithLabelValues(side, status).Inc() }

// SetOpenExposure sets the current total open notional exposure gauge.
func SetOpenExposure(v float64) { openExposure.Set(v) }

// SetDependencyHealth records a dependency's current healthy/degraded state.
func SetDependencyHealth(dependency string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	dependencyHealth.WithLabelValues(dependency).Set(v)
}
