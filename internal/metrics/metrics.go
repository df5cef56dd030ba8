// Package metrics exposes pipeline counters and latencies to prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "property_intake"

type Metrics struct {
	registry *prometheus.Registry

	documents     *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	docDuration   prometheus.Histogram
	backendCalls  *prometheus.CounterVec
	backendTime   *prometheus.HistogramVec
	tokens        *prometheus.CounterVec
	batches       *prometheus.CounterVec
	cache         *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents that reached a terminal state.",
		}, []string{"status", "document_type"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Document failures by pipeline stage.",
		}, []string{"stage"}),
		docDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Wall time of one document pass.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Completion backend calls by operation and error class.",
		}, []string{"op", "class"}),
		backendTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Completion backend latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"op"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_tokens_total",
			Help:      "Tokens consumed by the completion backend.",
		}, []string{"op"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches by final status.",
		}, []string{"status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_total",
			Help:      "Analysis cache lookups by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Audit events emitted by type.",
		}, []string{"event_type"}),
	}
	reg.MustRegister(
		m.documents, m.stageFailures, m.docDuration,
		m.backendCalls, m.backendTime, m.tokens,
		m.batches, m.cache, m.events,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) DocumentDone(status, docType string, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(status, docType).Inc()
	m.docDuration.Observe(d.Seconds())
}

func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

// BackendCall records one completion call; class is llm.ErrorClass of its error.
func (m *Metrics) BackendCall(op, class string, d time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(op, class).Inc()
	m.backendTime.WithLabelValues(op).Observe(d.Seconds())
	if tokens > 0 {
		m.tokens.WithLabelValues(op).Add(float64(tokens))
	}
}

func (m *Metrics) BatchDone(status string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(status).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) Event(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
