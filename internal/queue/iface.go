package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sungwon/newsletter/internal/storage"
)

// ErrEmpty is returned by ClaimOne when no unclaimed task is queued.
var ErrEmpty = errors.New("queue: no task available")

// Lease is one claimed task. The claim is held until Complete or Release
// is called; exactly one of them must be called.
type Lease interface {
	Task() Task
	// Issue loads the task's issue over the claim's own connection, so a
	// worker never needs more than one connection per lease.
	Issue(ctx context.Context) (storage.NewsletterIssue, error)
	// Complete removes the task from the queue and ends the claim.
	Complete(ctx context.Context) error
	// Release ends the claim and leaves the task queued for a later poll.
	Release(ctx context.Context) error
}

// Claimer hands out exclusive leases on queued tasks. Concurrent callers,
// including callers in other processes, never hold a lease on the same
// task at the same time.
type Claimer interface {
	ClaimOne(ctx context.Context) (Lease, error)
}

// Task is one pending delivery of an issue to a recipient.
type Task struct {
	IssueID         uuid.UUID
	SubscriberEmail string
}
