package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/storage"
)

// Enqueuer is the storage operation Enqueue needs. Pass a transaction-bound
// *storage.Queries so the batch becomes visible atomically with the issue.
type Enqueuer interface {
	EnqueueDeliveryTasks(ctx context.Context, arg storage.EnqueueDeliveryTasksParams) (int64, error)
}

// Enqueue adds one task per recipient for issueID and returns how many
// rows were inserted. Duplicate recipients collapse into a single task.
func Enqueue(ctx context.Context, q Enqueuer, issueID uuid.UUID, recipients []domain.SubscriberEmail) (int64, error) {
	emails := make([]string, len(recipients))
	for i, r := range recipients {
		emails[i] = r.String()
	}

	n, err := q.EnqueueDeliveryTasks(ctx, storage.EnqueueDeliveryTasksParams{
		NewsletterIssueID: issueID,
		SubscriberEmails:  emails,
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue delivery tasks: %w", err)
	}
	TasksEnqueuedTotal.Add(float64(n))
	return n, nil
}
