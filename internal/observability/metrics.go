package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the catalog service.
// Metrics are organized by subsystem: crawls, sources, entities, and the
// keyword suggestion side call.
type Metrics struct {
	// CrawlsStarted counts crawls initiated, labeled by source kind.
	CrawlsStarted *prometheus.CounterVec

	// CrawlsCompleted counts crawls that persisted a paper, labeled by source kind.
	CrawlsCompleted *prometheus.CounterVec

	// CrawlsFailed counts failed crawls, labeled by source kind and error kind.
	CrawlsFailed *prometheus.CounterVec

	// CrawlDuration observes end-to-end crawl duration in seconds, labeled by source kind.
	CrawlDuration *prometheus.HistogramVec

	// SourceRequestsTotal counts HTTP requests to metadata sources.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to metadata sources.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes source request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// EntitiesCreated counts catalog entities created during resolution,
	// labeled by entity type (author, keyword, affiliation).
	EntitiesCreated *prometheus.CounterVec

	// PapersUpserted counts papers created or refreshed, labeled by operation.
	PapersUpserted *prometheus.CounterVec

	// SuggestionsRequested counts keyword suggestion side calls.
	SuggestionsRequested prometheus.Counter

	// SuggestionsFailed counts keyword suggestion side calls that failed.
	// Failures here never fail the primary save.
	SuggestionsFailed prometheus.Counter

	// SuggestedPhrases counts key phrases returned by the suggestion service.
	SuggestedPhrases prometheus.Counter
}

// NewMetrics creates all metrics under the given namespace and registers
// them with reg. Pass prometheus.DefaultRegisterer in production and a
// fresh prometheus.NewRegistry() in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CrawlsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_started_total",
			Help:      "Total number of metadata crawls started",
		}, []string{"source_kind"}),
		CrawlsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_completed_total",
			Help:      "Total number of metadata crawls that persisted a paper",
		}, []string{"source_kind"}),
		CrawlsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_failed_total",
			Help:      "Total number of failed metadata crawls",
		}, []string{"source_kind", "error_kind"}),
		CrawlDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "End-to-end duration of metadata crawls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source_kind"}),

		SourceRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of HTTP requests to metadata sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed HTTP requests to metadata sources",
		}, []string{"source", "endpoint"}),
		SourceRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to metadata sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),

		EntitiesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_created_total",
			Help:      "Total number of catalog entities created during crawls",
		}, []string{"entity"}),
		PapersUpserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_upserted_total",
			Help:      "Total number of papers created or refreshed",
		}, []string{"operation"}),

		SuggestionsRequested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_requested_total",
			Help:      "Total number of keyword suggestion side calls",
		}),
		SuggestionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_failed_total",
			Help:      "Total number of keyword suggestion side calls that failed",
		}),
		SuggestedPhrases: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggested_phrases_total",
			Help:      "Total number of key phrases returned by the suggestion service",
		}),
	}
}

// RecordCrawlStarted records that a crawl has started.
func (m *Metrics) RecordCrawlStarted(sourceKind string) {
	m.CrawlsStarted.WithLabelValues(sourceKind).Inc()
}

// RecordCrawlCompleted records a crawl that persisted its paper.
func (m *Metrics) RecordCrawlCompleted(sourceKind string, durationSeconds float64) {
	m.CrawlsCompleted.WithLabelValues(sourceKind).Inc()
	m.CrawlDuration.WithLabelValues(sourceKind).Observe(durationSeconds)
}

// RecordCrawlFailed records a crawl that ended in a terminal error state.
func (m *Metrics) RecordCrawlFailed(sourceKind, errorKind string, durationSeconds float64) {
	m.CrawlsFailed.WithLabelValues(sourceKind, errorKind).Inc()
	m.CrawlDuration.WithLabelValues(sourceKind).Observe(durationSeconds)
}

// RecordSourceRequest records an HTTP request to a metadata source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64, failed bool) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
	if failed {
		m.SourceRequestsFailed.WithLabelValues(source, endpoint).Inc()
	}
}

// RecordEntityCreated records creation of a resolved catalog entity.
func (m *Metrics) RecordEntityCreated(entity string) {
	m.EntitiesCreated.WithLabelValues(entity).Inc()
}

// RecordPaperUpserted records a paper create or refresh.
func (m *Metrics) RecordPaperUpserted(operation string) {
	m.PapersUpserted.WithLabelValues(operation).Inc()
}

// RecordSuggestion records a suggestion side call and its outcome.
func (m *Metrics) RecordSuggestion(phrases int, failed bool) {
	m.SuggestionsRequested.Inc()
	if failed {
		m.SuggestionsFailed.Inc()
		return
	}
	m.SuggestedPhrases.Add(float64(phrases))
}
