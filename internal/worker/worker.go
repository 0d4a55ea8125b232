// Package worker drains the delivery queue: each task is claimed, sent
// through the email transport and removed once its outcome is terminal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sungwon/newsletter/internal/clock"
	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/provider"
	"github.com/sungwon/newsletter/internal/queue"
)

// Outcome is the result of one TryExecuteTask call.
type Outcome int

const (
	// TaskCompleted means a task was claimed and removed from the queue.
	TaskCompleted Outcome = iota
	// EmptyQueue means there was nothing to claim.
	EmptyQueue
	// TaskDeferred means a task was claimed and put back after a
	// transient send failure.
	TaskDeferred
)

func (o Outcome) String() string {
	switch o {
	case TaskCompleted:
		return "task_completed"
	case EmptyQueue:
		return "empty_queue"
	case TaskDeferred:
		return "task_deferred"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// EmailSender is the outbound transport.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient domain.SubscriberEmail, subject, html, text string) error
}

// Config controls one worker's pacing and failure policy.
type Config struct {
	// PollInterval is how long the worker sleeps after finding the queue
	// empty or hitting an error.
	PollInterval time.Duration
	// SendTimeout bounds a single transport call.
	SendTimeout time.Duration
	// RetryTransient leaves a task queued after a transient send error
	// instead of discarding it.
	RetryTransient bool
}

// Worker processes delivery tasks one at a time.
type Worker struct {
	queue   queue.Claimer
	sender  EmailSender
	clock   clock.Clock
	limiter *rate.Limiter
	cfg     Config
	log     zerolog.Logger
}

// Option configures optional Worker dependencies.
type Option func(*Worker)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(w *Worker) { w.clock = c }
}

// WithLimiter caps the send rate. One limiter may be shared by every
// worker in a process.
func WithLimiter(l *rate.Limiter) Option {
	return func(w *Worker) { w.limiter = l }
}

// New returns a Worker.
//
// The issue content for each task is read through the task's lease, so a
// worker holds at most one database connection at a time.
func New(q queue.Claimer, sender EmailSender, cfg Config, log zerolog.Logger, opts ...Option) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	w := &Worker{
		queue:  q,
		sender: sender,
		clock:  clock.Real(),
		cfg:    cfg,
		log:    log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls the queue until ctx is cancelled. It sleeps one poll interval
// after an empty poll, a deferred task or an error, and loops immediately
// after a completed task. Run never exits because a task failed.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("worker started")
	defer w.log.Info().Msg("worker stopped")

	for ctx.Err() == nil {
		outcome, err := w.TryExecuteTask(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("delivery attempt failed")
		} else if outcome == TaskCompleted {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(w.cfg.PollInterval):
		}
	}
}

// TryExecuteTask claims at most one task and drives it to an outcome.
// Any returned error leaves the task queued.
func (w *Worker) TryExecuteTask(ctx context.Context) (Outcome, error) {
	lease, err := w.queue.ClaimOne(ctx)
	if errors.Is(err, queue.ErrEmpty) {
		return EmptyQueue, nil
	}
	if err != nil {
		return EmptyQueue, fmt.Errorf("claim task: %w", err)
	}

	start := w.clock.Now()
	task := lease.Task()
	log := w.log.With().
		Stringer("newsletter_issue_id", task.IssueID).
		Str("subscriber_email", task.SubscriberEmail).
		Logger()

	result, err := w.deliver(ctx, log, lease)
	if err != nil || result == queue.OutcomeReleased {
		if relErr := lease.Release(ctx); relErr != nil {
			log.Error().Err(relErr).Msg("failed to release delivery task")
		}
		if err != nil {
			return EmptyQueue, err
		}
		queue.TasksProcessedTotal.WithLabelValues(result).Inc()
		return TaskDeferred, nil
	}

	if err := lease.Complete(ctx); err != nil {
		return EmptyQueue, err
	}
	queue.TasksProcessedTotal.WithLabelValues(result).Inc()
	queue.TaskProcessingDuration.Observe(w.clock.Now().Sub(start).Seconds())
	return TaskCompleted, nil
}

// deliver returns the task's outcome label. An error means the attempt
// was cut short and the task must stay queued.
func (w *Worker) deliver(ctx context.Context, log zerolog.Logger, lease queue.Lease) (string, error) {
	task := lease.Task()
	recipient, err := domain.ParseSubscriberEmail(task.SubscriberEmail)
	if err != nil {
		log.Warn().Err(err).Msg("skipping a confirmed subscriber, their stored details are invalid")
		return queue.OutcomeInvalidRecipient, nil
	}

	issue, err := lease.Issue(ctx)
	if err != nil {
		return "", fmt.Errorf("load newsletter issue %s: %w", task.IssueID, err)
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for send slot: %w", err)
		}
	}

	sendCtx := ctx
	if w.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, w.cfg.SendTimeout)
		defer cancel()
	}

	err = w.sender.SendEmail(sendCtx, recipient, issue.Title, issue.HtmlContent, issue.TextContent)
	switch {
	case err == nil:
		log.Debug().Msg("issue delivered")
		return queue.OutcomeDelivered, nil
	case ctx.Err() != nil:
		return "", fmt.Errorf("send interrupted: %w", ctx.Err())
	case w.cfg.RetryTransient && provider.IsTransient(err):
		log.Warn().Err(err).Msg("transient delivery failure, task left queued")
		return queue.OutcomeReleased, nil
	default:
		log.Error().Err(err).Msg("failed to deliver issue to a confirmed subscriber, skipping")
		return queue.OutcomeSendFailed, nil
	}
}
