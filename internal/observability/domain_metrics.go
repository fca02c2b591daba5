package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	completionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footfall_completion_requests_total",
			Help: "Total number of chat completion attempts by deployment and outcome.",
		},
		[]string{"deployment", "outcome"},
	)
	completionRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "footfall_completion_retries_total",
			Help: "Total number of completion re-issues after a malformed structured response.",
		},
	)
	completionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "footfall_completion_duration_seconds",
			Help:    "Wall-clock duration of a single streamed completion attempt.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
		},
		[]string{"deployment"},
	)
	plotRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footfall_plot_requests_total",
			Help: "Total number of prompt-to-summary pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	plotRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "footfall_plot_rows_returned",
			Help:    "Row counts returned by generated queries before truncation.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
		},
	)
	ingestRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "footfall_ingest_rows_total",
			Help: "Total number of CSV rows inserted at startup.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		completionRequestsTotal,
		completionRetriesTotal,
		completionDurationSeconds,
		plotRequestsTotal,
		plotRowsReturned,
		ingestRowsTotal,
	)
}

func ObserveCompletion(deployment, outcome string, elapsed time.Duration) {
	completionRequestsTotal.WithLabelValues(deployment, outcome).Inc()
	completionDurationSeconds.WithLabelValues(deployment).Observe(elapsed.Seconds())
}

func IncrementCompletionRetry() {
	completionRetriesTotal.Inc()
}

// ObservePlotRun records one pipeline run. Pass a negative rows value for
// outcomes where no query ran, so the rows histogram only reflects executed
// queries.
func ObservePlotRun(outcome string, rows int) {
	plotRequestsTotal.WithLabelValues(outcome).Inc()
	if rows >= 0 {
		plotRowsReturned.Observe(float64(rows))
	}
}

func AddIngestedRows(rows int) {
	if rows > 0 {
		ingestRowsTotal.Add(float64(rows))
	}
}
