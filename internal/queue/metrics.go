package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Queue metrics for Prometheus monitoring.
var (
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_tasks_pending",
			Help: "Number of queued delivery tasks per newsletter issue",
		},
		[]string{"newsletter_issue_id"},
	)

	TasksEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_tasks_enqueued_total",
			Help: "Total number of delivery tasks enqueued",
		},
	)

	TasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_tasks_processed_total",
			Help: "Total number of delivery tasks processed by outcome",
		},
		[]string{"outcome"}, // delivered, invalid_recipient, send_failed, released
	)

	TaskProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_task_processing_duration_seconds",
			Help:    "Duration of delivery task processing, claim to commit",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Task outcome label values.
const (
	OutcomeDelivered        = "delivered"
	OutcomeInvalidRecipient = "invalid_recipient"
	OutcomeSendFailed       = "send_failed"
	OutcomeReleased         = "released"
)
