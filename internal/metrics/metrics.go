// Package metrics exports governor observations to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"ScoutBot/internal/biz"
	"ScoutBot/internal/model"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scoutbot"

// ProviderSet is metrics providers.
var ProviderSet = wire.NewSet(
	NewGovernorMetrics,
	wire.Bind(new(biz.GovernorMetrics), new(*GovernorMetrics)),
)

// GovernorMetrics implements biz.GovernorMetrics on a private registry.
type GovernorMetrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	shortCircuits *prometheus.CounterVec
	waits         prometheus.Histogram
	transitions   *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	currentDelay  *prometheus.GaugeVec
}

// NewGovernorMetrics creates and registers the governor collectors.
func NewGovernorMetrics() *GovernorMetrics {
	m := &GovernorMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "origin_requests_total",
				Help:      "Recorded outbound requests by origin and outcome",
			},
			[]string{"origin", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "origin_request_duration_seconds",
				Help:      "Duration of governed operations by outcome",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		shortCircuits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "origin_short_circuits_total",
				Help:      "Requests rejected by an open or half-open breaker",
			},
			[]string{"origin"},
		),
		waits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "origin_delay_wait_seconds",
				Help:      "Time requests spent waiting for the adaptive delay",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transition_total",
				Help:      "Count of breaker state transitions",
			},
			[]string{"origin", "from", "to"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Current breaker state: 0=closed,1=open,2=half-open",
			},
			[]string{"origin"},
		),
		currentDelay: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "origin_current_delay_seconds",
				Help:      "Minimum spacing currently enforced between requests to an origin",
			},
			[]string{"origin"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.shortCircuits,
		m.waits,
		m.transitions,
		m.breakerState,
		m.currentDelay,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the governor collectors.
func (m *GovernorMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *GovernorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOutcome counts one recorded request.
func (m *GovernorMetrics) ObserveOutcome(origin string, outcome model.Outcome, latency time.Duration) {
	m.requests.WithLabelValues(origin, outcome.String()).Inc()
	m.latency.WithLabelValues(outcome.String()).Observe(latency.Seconds())
}

// ObserveShortCircuit counts a request the breaker rejected.
func (m *GovernorMetrics) ObserveShortCircuit(origin string) {
	m.shortCircuits.WithLabelValues(origin).Inc()
}

// ObserveWait records time spent honoring the adaptive delay.
func (m *GovernorMetrics) ObserveWait(_ string, wait time.Duration) {
	m.waits.Observe(wait.Seconds())
}

// ObserveTransition counts a breaker state change.
func (m *GovernorMetrics) ObserveTransition(origin string, from, to model.BreakerState) {
	m.transitions.WithLabelValues(origin, from.String(), to.String()).Inc()
	m.breakerState.WithLabelValues(origin).Set(float64(to))
}

// SetOriginState publishes the current breaker state and delay of an origin.
func (m *GovernorMetrics) SetOriginState(origin string, state model.BreakerState, delay time.Duration) {
	m.breakerState.WithLabelValues(origin).Set(float64(state))
	m.currentDelay.WithLabelValues(origin).Set(delay.Seconds())
}

// ForgetOrigin drops every series of an evicted origin.
func (m *GovernorMetrics) ForgetOrigin(origin string) {
	labels := prometheus.Labels{"origin": origin}
	m.requests.DeletePartialMatch(labels)
	m.shortCircuits.DeletePartialMatch(labels)
	m.transitions.DeletePartialMatch(labels)
	m.breakerState.DeletePartialMatch(labels)
	m.currentDelay.DeletePartialMatch(labels)
}
