package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval, ingestion, and admission Prometheus metrics.
var (
	RetrievalDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "retrieval_degraded_total",
			Help:      "Searches that fell back to empty results after an upstream failure",
		},
		[]string{"cause"}, // "embedding" / "index"
	)

	RetrievalResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "retrieval_results_returned",
			Help:      "Number of passages returned per search after threshold filtering",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks written to the vector index",
		},
	)

	IngestFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "ingest_failures_total",
			Help:      "Documents that failed to ingest",
		},
		[]string{"stage"}, // "extract" / "embed" / "index"
	)

	AdmissionDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "admission_decisions_total",
			Help:      "Admission control decisions",
		},
		[]string{"decision"}, // "allowed" / "rejected_minute" / "rejected_hour"
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers retrieval, ingestion, and admission metrics.
// Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalDegradedTotal)
	prometheus.MustRegister(RetrievalResultsReturned)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(IngestFailuresTotal)
	prometheus.MustRegister(AdmissionDecisionsTotal)
	engineMetricsRegistered = true
}
