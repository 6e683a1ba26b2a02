package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// StagesStartedTotal counts stage executions started, by stage.
	StagesStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stages_started_total",
			Help: "Total number of pipeline stage executions started",
		},
		[]string{"stage"},
	)
	// StagesCompletedTotal counts stage executions that completed successfully.
	StagesCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stages_completed_total",
			Help: "Total number of pipeline stage executions completed",
		},
		[]string{"stage"},
	)
	// StagesFailedTotal counts stage executions that failed, by stage and kind.
	StagesFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stages_failed_total",
			Help: "Total number of pipeline stage executions failed",
		},
		[]string{"stage", "kind"},
	)
	// StageDuration observes wall-clock stage duration.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// QueueItemsEnqueuedTotal counts queue items enqueued, by stage.
	QueueItemsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_items_enqueued_total",
			Help: "Total number of queue items enqueued",
		},
		[]string{"stage"},
	)
	// QueueItemsReclaimedTotal counts stuck RUNNING items reset by the reconciler.
	QueueItemsReclaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_items_reclaimed_total",
			Help: "Total number of stuck RUNNING items reset to READY",
		},
	)
	// QueueItemsRetriedTotal counts FAILED items re-readied by the reconciler.
	QueueItemsRetriedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_items_retried_total",
			Help: "Total number of FAILED items re-readied for another attempt",
		},
	)

	// AIRequestsTotal counts AI provider requests by operation and outcome.
	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by operation and status",
		},
		[]string{"operation", "status"},
	)
	// AIRequestDuration observes AI provider request duration by operation.
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// TotalFitHistogram observes the distribution of composite fit scores.
	TotalFitHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_total_fit",
			Help:    "Distribution of total_fit_0_100 composite scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call
// more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			StagesStartedTotal,
			StagesCompletedTotal,
			StagesFailedTotal,
			StageDuration,
			QueueItemsEnqueuedTotal,
			QueueItemsReclaimedTotal,
			QueueItemsRetriedTotal,
			AIRequestsTotal,
			AIRequestDuration,
			TotalFitHistogram,
		)
	})
}
