// Package metrics exposes Prometheus counters for evaluation outcomes,
// gate denials, spend and provider latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	evaluationsTotal *prometheus.CounterVec
	gateDenialsTotal *prometheus.CounterVec
	costTotal        *prometheus.CounterVec
	providerSeconds  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conjugo",
				Name:      "evaluations_total",
				Help:      "Sentence evaluations by outcome",
			},
			[]string{"outcome"},
		),

		gateDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conjugo",
				Name:      "gate_denials_total",
				Help:      "Requests denied before dispatch, by gate",
			},
			[]string{"gate"},
		),

		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conjugo",
				Name:      "cost_usd_total",
				Help:      "Accumulated AI spend in USD",
			},
			[]string{"provider", "model"},
		),

		providerSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "conjugo",
				Name:      "provider_request_seconds",
				Help:      "Duration of external AI calls in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
			},
			[]string{"provider"},
		),
	}

	m.registry.MustRegister(
		m.evaluationsTotal,
		m.gateDenialsTotal,
		m.costTotal,
		m.providerSeconds,
	)

	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// All recording methods are no-ops on a nil receiver so callers without
// metrics wired (tests) need no stub.

func (m *Metrics) RecordEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDenial(gate string) {
	if m == nil {
		return
	}
	m.gateDenialsTotal.WithLabelValues(gate).Inc()
}

func (m *Metrics) AddCost(provider, model string, usd float64) {
	if m == nil {
		return
	}
	m.costTotal.WithLabelValues(provider, model).Add(usd)
}

func (m *Metrics) ObserveProviderDuration(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.providerSeconds.WithLabelValues(provider).Observe(seconds)
}
