package controller

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Internal operational metrics, exposed at /debug/metrics rather than
// the legacy /metrics placeholder.
var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resourcemgr_decisions_total",
		Help: "Decisions produced by the decision engine, by action.",
	}, []string{"service", "action"})

	gateDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resourcemgr_gate_denials_total",
		Help: "Gate denials, by reason.",
	}, []string{"service", "reason"})

	actuationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resourcemgr_actuations_total",
		Help: "Actuation attempts, by outcome.",
	}, []string{"service", "outcome"})

	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "resourcemgr_tick_duration_seconds",
		Help: "Wall time spent evaluating all monitored services in one tick.",
	})
)

var (
	metricsRegistry     *prometheus.Registry
	metricsRegistryOnce sync.Once
)

// MetricsRegistry returns this package's metrics registry for
// exposition at /debug/metrics, registering the collectors exactly
// once regardless of how many Controllers are built in a process.
func MetricsRegistry() *prometheus.Registry {
	metricsRegistryOnce.Do(func() {
		metricsRegistry = prometheus.NewRegistry()
		metricsRegistry.MustRegister(decisionsTotal, gateDenialsTotal, actuationsTotal, tickDuration)
	})
	return metricsRegistry
}
