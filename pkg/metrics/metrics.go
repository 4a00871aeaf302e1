// Package metrics provides Prometheus metrics for the review service
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	mutationsTotal  *prometheus.CounterVec
	scoresTotal     *prometheus.CounterVec
	auditFailures   prometheus.Counter
	auditDropped    prometheus.Counter
	cacheOperations *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers the service metrics on a fresh registry
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates and registers the service metrics on registry
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_review_mutations_total",
			Help: "Total number of structural mutations",
		},
		[]string{"resource", "action", "status"}, // status: success, error
	)
	m.scoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_review_scores_total",
			Help: "Total number of computed scores by aggregation method",
		},
		[]string{"method"},
	)
	m.auditFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qa_review_audit_failures_total",
		Help: "Audit records that could not be written",
	})
	m.auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qa_review_audit_dropped_total",
		Help: "Audit records dropped because the queue was full",
	})
	m.cacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_review_cache_operations_total",
			Help: "Criteria cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)
	m.importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_review_transcript_imports_total",
			Help: "Transcript imports from the transcription provider",
		},
		[]string{"source", "status"}, // source: api, webhook
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qa_review_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	for _, c := range []prometheus.Collector{
		m.mutationsTotal,
		m.scoresTotal,
		m.auditFailures,
		m.auditDropped,
		m.cacheOperations,
		m.importsTotal,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordMutation counts a mutation outcome
func (m *Metrics) RecordMutation(resource, action string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.mutationsTotal.WithLabelValues(resource, action, status).Inc()
}

// RecordScore counts a computed score
func (m *Metrics) RecordScore(method string) {
	if m == nil {
		return
	}
	m.scoresTotal.WithLabelValues(method).Inc()
}

// RecordAuditFailure counts an audit write that failed
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// RecordAuditDropped counts an audit record that was never queued
func (m *Metrics) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// RecordCache counts a cache lookup result
func (m *Metrics) RecordCache(result string) {
	if m == nil {
		return
	}
	m.cacheOperations.WithLabelValues(result).Inc()
}

// RecordImport counts a transcript import outcome
func (m *Metrics) RecordImport(source string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.importsTotal.WithLabelValues(source, status).Inc()
}

// ObserveHTTP records the latency of a request
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
