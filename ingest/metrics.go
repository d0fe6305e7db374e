package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ambient observability for the ingestion driver (§4.9): per-batch
// counts and durations, promauto-registered on import the way services
// in this codebase expose their own counters.
var (
	filesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragdata_ingest_files_processed_total",
		Help: "Files run through the ingestion driver, by outcome.",
	}, []string{"outcome"}) // stored | skipped | failed

	chunksStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragdata_ingest_chunks_stored_total",
		Help: "Chunks persisted to a vector store by the ingestion driver.",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragdata_ingest_batch_duration_seconds",
		Help:    "Wall-clock duration of one Driver.Run batch.",
		Buckets: prometheus.DefBuckets,
	})
)

// observeResult records a completed batch's outcome counts. Called once
// per Driver.Run after the batch loop finishes.
func observeResult(start time.Time, result *ProcessingResult) {
	batchDuration.Observe(time.Since(start).Seconds())
	filesProcessedTotal.WithLabelValues("stored").Add(float64(result.StoredCount))
	filesProcessedTotal.WithLabelValues("skipped").Add(float64(len(result.SkippedFiles)))
	filesProcessedTotal.WithLabelValues("failed").Add(float64(len(result.FailedFiles)))
	chunksStoredTotal.Add(float64(result.StoredChunks))
}
