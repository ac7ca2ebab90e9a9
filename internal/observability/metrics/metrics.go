// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcript_search"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Search metrics
	SearchesTotal  prometheus.Counter
	SearchResults  *prometheus.CounterVec
	SearchLatency  prometheus.Histogram
	SearchNoResult prometheus.Counter

	// Correction metrics
	CorrectionJobs      *prometheus.CounterVec
	CorrectionBatches   *prometheus.CounterVec
	CorrectionDiscarded *prometheus.CounterVec
	CorrectionDuration  *prometheus.HistogramVec
	WordCountMismatch   prometheus.Counter

	// Collaborator metrics (ASR, LLM, chat)
	CollaboratorLatency *prometheus.HistogramVec
	CollaboratorErrors  *prometheus.CounterVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsExpired prometheus.Counter

	// Chat metrics
	ChatStreamsTotal  prometheus.Counter
	ChatStreamsFailed prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCRequests *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Search metrics
		SearchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of transcript searches",
		}),
		SearchResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Total number of search hits by confidence tier",
		}, []string{"tier"}),
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Search latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SearchNoResult: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_empty_total",
			Help:      "Total number of searches returning no hits",
		}),

		// Correction metrics
		CorrectionJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correction_jobs_total",
			Help:      "Total number of correction jobs by strategy and final state",
		}, []string{"strategy", "state"}),
		CorrectionBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correction_batches_total",
			Help:      "Total number of correction batches by outcome",
		}, []string{"outcome"}),
		CorrectionDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correction_batches_discarded_total",
			Help:      "Total number of discarded correction batches by reason",
		}, []string{"reason"}),
		CorrectionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correction_duration_seconds",
			Help:      "Duration of correction jobs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"strategy"}),
		WordCountMismatch: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correction_word_count_mismatch_total",
			Help:      "Word-count realignments where corrected and original token counts differ",
		}),

		// Collaborator metrics
		CollaboratorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_latency_seconds",
			Help:      "Latency of external ASR/LLM calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"collaborator", "provider"}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Total number of failed external ASR/LLM calls",
		}, []string{"collaborator", "provider"}),

		// Session metrics
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently held in memory",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Total number of sessions evicted after idling",
		}),

		// Chat metrics
		ChatStreamsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_streams_total",
			Help:      "Total number of chat streams started",
		}),
		ChatStreamsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_streams_failed_total",
			Help:      "Total number of chat streams that failed",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordSearch records a search and its hits.
func (m *Metrics) RecordSearch(tiers []string, latencySeconds float64) {
	m.SearchesTotal.Inc()
	m.SearchLatency.Observe(latencySeconds)
	if len(tiers) == 0 {
		m.SearchNoResult.Inc()
		return
	}
	for _, t := range tiers {
		m.SearchResults.WithLabelValues(t).Inc()
	}
}

// RecordCorrectionJob records a finished correction job.
func (m *Metrics) RecordCorrectionJob(strategy, state string, durationSeconds float64) {
	m.CorrectionJobs.WithLabelValues(strategy, state).Inc()
	m.CorrectionDuration.WithLabelValues(strategy).Observe(durationSeconds)
}

// RecordBatchApplied records a batch whose correction was applied.
func (m *Metrics) RecordBatchApplied() {
	m.CorrectionBatches.WithLabelValues("applied").Inc()
}

// RecordBatchDiscarded records a batch that kept its original text.
func (m *Metrics) RecordBatchDiscarded(reason string) {
	m.CorrectionBatches.WithLabelValues("discarded").Inc()
	m.CorrectionDiscarded.WithLabelValues(reason).Inc()
}

// RecordWordCountMismatch records an approximate word-count realignment.
func (m *Metrics) RecordWordCountMismatch() {
	m.WordCountMismatch.Inc()
}

// RecordCollaborator records an external ASR/LLM call.
func (m *Metrics) RecordCollaborator(collaborator, provider string, err error, latencySeconds float64) {
	m.CollaboratorLatency.WithLabelValues(collaborator, provider).Observe(latencySeconds)
	if err != nil {
		m.CollaboratorErrors.WithLabelValues(collaborator, provider).Inc()
	}
}

// RecordSessionCreated records a new session.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionDeleted records a session removed by the caller.
func (m *Metrics) RecordSessionDeleted() {
	m.SessionsActive.Dec()
}

// RecordSessionExpired records a session evicted by the janitor.
func (m *Metrics) RecordSessionExpired() {
	m.SessionsExpired.Inc()
	m.SessionsActive.Dec()
}

// RecordChatStream records a chat stream ending.
func (m *Metrics) RecordChatStream(success bool) {
	m.ChatStreamsTotal.Inc()
	if !success {
		m.ChatStreamsFailed.Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCRequest records a finished gRPC call.
func (m *Metrics) RecordGRPCRequest(method, code string) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
}
