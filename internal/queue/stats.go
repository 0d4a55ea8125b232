package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sungwon/newsletter/internal/storage"
)

// StatsQueries is the storage needed to report queue depth.
type StatsQueries interface {
	CountDeliveryTasksByIssue(ctx context.Context) ([]storage.CountDeliveryTasksByIssueRow, error)
}

// IssueDepth is the number of tasks still queued for one issue.
type IssueDepth struct {
	IssueID uuid.UUID
	Pending int64
}

// Stats summarises the queue.
type Stats struct {
	Total   int64
	ByIssue []IssueDepth
}

// ReadStats reports queued tasks per issue, including rows currently
// claimed by a worker.
func ReadStats(ctx context.Context, q StatsQueries) (Stats, error) {
	rows, err := q.CountDeliveryTasksByIssue(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count delivery tasks: %w", err)
	}

	var s Stats
	for _, r := range rows {
		s.Total += r.Pending
		s.ByIssue = append(s.ByIssue, IssueDepth{IssueID: r.NewsletterIssueID, Pending: r.Pending})
	}
	return s, nil
}

// RecordDepth replaces the queue_tasks_pending series with s so drained
// issues stop being reported.
func RecordDepth(s Stats) {
	QueueDepth.Reset()
	for _, d := range s.ByIssue {
		QueueDepth.WithLabelValues(d.IssueID.String()).Set(float64(d.Pending))
	}
}
