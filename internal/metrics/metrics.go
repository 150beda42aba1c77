// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demandboard_signal_toggles_total",
		Help: "Signal toggles by kind and resulting action",
	}, []string{"kind", "action"})

	// SignalPartialWrites counts toggles whose record write landed but whose
	// counter write failed. Only non-atomic mode can produce them.
	SignalPartialWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demandboard_signal_partial_writes_total",
		Help: "Signal record writes whose counter update failed",
	}, []string{"kind"})

	AlternativesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demandboard_alternatives_submitted_total",
		Help: "Total failed-alternative submissions",
	})

	ReconcileDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demandboard_reconcile_drift_total",
		Help: "Documents whose stored aggregates differed from their records",
	}, []string{"collection"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
