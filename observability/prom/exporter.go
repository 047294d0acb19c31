package prom

import (
	"net/http"
	"time"

	"github.com/KamdynS/go-swarm/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter implements observability.Metrics on a Prometheus registry.
type Exporter struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	handoffsTotal   *prometheus.CounterVec
	activeRuns      prometheus.Gauge
}

// New registers the swarm collectors on a fresh registry. An empty namespace
// defaults to "goswarm".
func New(namespace string) *Exporter {
	if namespace == "" {
		namespace = "goswarm"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Calls by component (tool, agent, router, http) and name",
		}, []string{"component", "name"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Call latency by component and name",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"component", "name"}),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "LLM tokens by model and direction",
		}, []string{"model", "direction"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by type and component",
		}, []string{"type", "component"}),
		handoffsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Agent handoffs by source and target agent",
		}, []string{"from", "to"}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Orchestrator runs in flight",
		}),
	}
}

// Registry exposes the underlying registry, e.g. to add process collectors.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) IncrementRequests(labels map[string]string) {
	e.requestsTotal.WithLabelValues(labels[observability.LabelComponent], labels[observability.LabelName]).Inc()
}

func (e *Exporter) RecordLatency(d time.Duration, labels map[string]string) {
	e.requestDuration.WithLabelValues(labels[observability.LabelComponent], labels[observability.LabelName]).Observe(d.Seconds())
}

func (e *Exporter) IncrementTokensUsed(tokens int, labels map[string]string) {
	e.tokensTotal.WithLabelValues(labels[observability.LabelModel], labels[observability.LabelDirection]).Add(float64(tokens))
}

func (e *Exporter) RecordError(errorType string, labels map[string]string) {
	e.errorsTotal.WithLabelValues(errorType, labels[observability.LabelComponent]).Inc()
}

func (e *Exporter) IncrementHandoffs(from, to string) {
	e.handoffsTotal.WithLabelValues(from, to).Inc()
}

func (e *Exporter) AddActiveRuns(delta int) { e.activeRuns.Add(float64(delta)) }

var _ observability.Metrics = (*Exporter)(nil)
