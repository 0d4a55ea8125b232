package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sungwon/newsletter/internal/storage"
)

// TxBeginner opens transactions. *storage.DB satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres is a Claimer backed by the issue_delivery_queue table. A claim
// is a row lock taken with FOR UPDATE SKIP LOCKED inside a transaction that
// stays open for the lifetime of the lease.
type Postgres struct {
	db TxBeginner
}

// NewPostgres returns a Postgres queue over db.
func NewPostgres(db TxBeginner) *Postgres {
	return &Postgres{db: db}
}

// ClaimOne locks one queued task. It returns ErrEmpty when every queued
// task is either absent or already locked by another worker.
func (p *Postgres) ClaimOne(ctx context.Context) (Lease, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	q := storage.New(tx)
	row, err := q.ClaimDeliveryTask(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("claim delivery task: %w", err)
	}

	return &pgLease{
		tx: tx,
		q:  q,
		task: Task{
			IssueID:         row.NewsletterIssueID,
			SubscriberEmail: row.SubscriberEmail,
		},
	}, nil
}

type pgLease struct {
	tx    pgx.Tx
	q     *storage.Queries
	task  Task
	ended bool
}

func (l *pgLease) Task() Task { return l.task }

func (l *pgLease) Issue(ctx context.Context) (storage.NewsletterIssue, error) {
	return l.q.GetNewsletterIssue(ctx, l.task.IssueID)
}

func (l *pgLease) Complete(ctx context.Context) error {
	if l.ended {
		return errors.New("queue: lease already ended")
	}
	l.ended = true

	if err := l.q.DeleteDeliveryTask(ctx, storage.DeleteDeliveryTaskParams{
		NewsletterIssueID: l.task.IssueID,
		SubscriberEmail:   l.task.SubscriberEmail,
	}); err != nil {
		_ = l.tx.Rollback(context.WithoutCancel(ctx))
		return fmt.Errorf("delete delivery task: %w", err)
	}
	if err := l.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delivery task: %w", err)
	}
	return nil
}

// Release rolls the claim back. It uses a context detached from ctx's
// cancellation so a shutting-down worker still returns the row promptly.
func (l *pgLease) Release(ctx context.Context) error {
	if l.ended {
		return nil
	}
	l.ended = true

	if err := l.tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("release delivery task: %w", err)
	}
	return nil
}
