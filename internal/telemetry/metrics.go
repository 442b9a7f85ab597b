// Package telemetry exposes Prometheus metrics for transaction invocations.
package telemetry

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aub/blocktrace-chaincode/internal/apperrors"
)

const namespace = "blocktrace"

// OutcomeOK labels successful invocations. Failures are labelled with the
// lower-cased error kind.
const OutcomeOK = "ok"

// Metrics records invocation counts, latencies and emitted events.
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	events      *prometheus.CounterVec
}

// New builds a Metrics on its own registry, including Go and process
// collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Transaction function invocations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Transaction function execution time.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Chaincode events set, by name.",
		}, []string{"event"}),
	}
	registry.MustRegister(m.invocations, m.duration, m.events)
	return m
}

// Observe records one invocation of operation.
func (m *Metrics) Observe(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(operation, Outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Event counts an emitted event.
func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Outcome maps an invocation error to its metric label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return strings.ToLower(string(apperrors.KindOf(err)))
}
