// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conversation_ingress"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsClosed  *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Segment metrics
	SegmentsReceived *prometheus.CounterVec
	SegmentsFlushed  prometheus.Counter

	// Flush metrics
	FlushesTotal   prometheus.Counter
	FlushBatchSize prometheus.Histogram

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter

	// STT metrics
	STTReconnects *prometheus.CounterVec
	STTErrors     *prometheus.CounterVec

	// Enrichment metrics
	EnrichmentCalls   *prometheus.CounterVec
	EnrichmentLatency *prometheus.HistogramVec

	// Persistence metrics
	PersistenceRetries  prometheus.Counter
	PersistenceFailures prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of streaming sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active streaming sessions",
		}),
		SessionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed, by final status",
		}, []string{"status"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of streaming sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),

		SegmentsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_received_total",
			Help:      "Total number of transcript segments received, by source",
		}, []string{"source"}),
		SegmentsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_flushed_total",
			Help:      "Total number of segments moved into conversations",
		}),

		FlushesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Total number of non-empty buffer flushes",
		}),
		FlushBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_batch_size",
			Help:      "Number of segments per flush batch",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received",
		}),

		STTReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_reconnects_total",
			Help:      "Total number of STT stream reconnects",
		}, []string{"provider"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		EnrichmentCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_calls_total",
			Help:      "Total enrichment calls, by kind and outcome",
		}, []string{"kind", "outcome"}),
		EnrichmentLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_latency_seconds",
			Help:      "Enrichment call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),

		PersistenceRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_retries_total",
			Help:      "Total number of retried conversation writes",
		}),
		PersistenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Total number of conversation writes that exhausted retries",
		}),

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
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending with its final status.
func (m *Metrics) RecordSessionEnd(status string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	m.SessionsClosed.WithLabelValues(status).Inc()
}

// RecordSegment records a segment received from a source.
func (m *Metrics) RecordSegment(source string) {
	m.SegmentsReceived.WithLabelValues(source).Inc()
}

// RecordFlush records a non-empty buffer flush.
func (m *Metrics) RecordFlush(batchSize int) {
	m.FlushesTotal.Inc()
	m.FlushBatchSize.Observe(float64(batchSize))
	m.SegmentsFlushed.Add(float64(batchSize))
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordEnrichment records an enrichment call outcome: outcome is "agent"
// when the external agent answered, "fallback" when local generation was used.
func (m *Metrics) RecordEnrichment(kind, outcome string, latencySeconds float64) {
	m.EnrichmentCalls.WithLabelValues(kind, outcome).Inc()
	m.EnrichmentLatency.WithLabelValues(kind).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
