// Package newsletter accepts newsletter issues for publication. Publishing
// stores the issue, snapshots the confirmed subscribers into the delivery
// queue and saves the caller's response in one transaction, so a retried
// request with the same idempotency key replays that response instead of
// queueing the issue again.
package newsletter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/clock"
	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/idempotency"
	"github.com/sungwon/newsletter/internal/queue"
	"github.com/sungwon/newsletter/internal/storage"
)

// Tx is the transaction-bound storage a publish needs.
type Tx interface {
	idempotency.Queries
	queue.Enqueuer
	SubscriberSource
	InsertNewsletterIssue(ctx context.Context, arg storage.InsertNewsletterIssueParams) error
}

// Store gives pool-level access for replays and opens publish
// transactions.
type Store interface {
	idempotency.Queries
	// InTx commits when fn returns nil and rolls back otherwise, returning
	// fn's error unchanged.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// PublishRequest is one publish attempt by an authenticated caller.
type PublishRequest struct {
	Content        domain.NewsletterIssueContent
	IdempotencyKey string
	// Respond renders the response for a newly accepted issue. It runs
	// inside the transaction; its result is saved under the key and
	// replayed for every retry.
	Respond func(issueID uuid.UUID) (*idempotency.Response, error)
}

// PublishResult describes what Publish did.
type PublishResult struct {
	// Response is the response to send to the caller.
	Response *idempotency.Response
	// Replayed is true when Response was saved by an earlier request and
	// nothing new was written.
	Replayed bool
	// The fields below are set only when Replayed is false.
	IssueID  uuid.UUID
	Enqueued int64
	Skipped  int
}

// Coordinator runs the publish workflow.
type Coordinator struct {
	store Store
	clock clock.Clock
	log   zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used to stamp published_at.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// NewCoordinator returns a Coordinator over store.
func NewCoordinator(store Store, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{store: store, clock: clock.Real(), log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish accepts req on behalf of caller. For a given (caller, key) the
// issue is stored and queued at most once; every other call, including
// ones racing the first, gets the first call's response back.
func (c *Coordinator) Publish(ctx context.Context, caller uuid.UUID, req PublishRequest) (*PublishResult, error) {
	key, err := domain.ParseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		return nil, &Error{Kind: KindInvalidKey, Op: "parse idempotency key", Err: err}
	}
	if req.Respond == nil {
		return nil, &Error{Kind: KindInternal, Op: "render response", Err: errors.New("no responder")}
	}

	log := c.log.With().
		Stringer("user_id", caller).
		Str("idempotency_key", key.String()).
		Logger()

	replayed, err := c.replay(ctx, caller, key)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		log.Info().Msg("replaying saved publish response")
		return replayed, nil
	}

	// Content is checked only for requests that will be stored, so a retry
	// of an accepted request always replays.
	if err := req.Content.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidIssue, Op: "validate issue", Err: err}
	}

	var result PublishResult
	err = c.store.InTx(ctx, func(tx Tx) error {
		issueID := uuid.New()
		if err := tx.InsertNewsletterIssue(ctx, storage.InsertNewsletterIssueParams{
			NewsletterIssueID: issueID,
			Title:             req.Content.Title,
			TextContent:       req.Content.TextContent,
			HtmlContent:       req.Content.HTMLContent,
			PublishedAt:       c.clock.Now().UTC(),
		}); err != nil {
			return &Error{Kind: KindStorage, Op: "insert issue", Err: err}
		}

		recipients, skipped, err := ConfirmedSubscribers(ctx, tx, log)
		if err != nil {
			return &Error{Kind: KindStorage, Op: "snapshot subscribers", Err: err}
		}
		n, err := queue.Enqueue(ctx, tx, issueID, recipients)
		if err != nil {
			return &Error{Kind: KindStorage, Op: "enqueue deliveries", Err: err}
		}

		resp, err := req.Respond(issueID)
		if err != nil {
			return &Error{Kind: KindInternal, Op: "render response", Err: err}
		}
		if err := idempotency.NewStore(tx).Save(ctx, caller, key, resp); err != nil {
			if errors.Is(err, idempotency.ErrConflict) {
				return err
			}
			return &Error{Kind: KindStorage, Op: "save response", Err: err}
		}

		result = PublishResult{Response: resp, IssueID: issueID, Enqueued: n, Skipped: skipped}
		return nil
	})

	if errors.Is(err, idempotency.ErrConflict) {
		// Another request with the same key committed first.
		res, err := c.replay(ctx, caller, key)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, &Error{Kind: KindStorage, Op: "replay response", Err: errors.New("conflicting response not found")}
		}
		log.Info().Msg("lost publish race, replaying winner's response")
		return res, nil
	}
	if err != nil {
		if KindOf(err) == 0 {
			err = &Error{Kind: KindStorage, Op: "commit", Err: err}
		}
		return nil, err
	}

	log.Info().
		Stringer("newsletter_issue_id", result.IssueID).
		Int64("tasks_enqueued", result.Enqueued).
		Int("subscribers_skipped", result.Skipped).
		Msg("newsletter issue accepted")
	return &result, nil
}

func (c *Coordinator) replay(ctx context.Context, caller uuid.UUID, key domain.IdempotencyKey) (*PublishResult, error) {
	resp, err := idempotency.NewStore(c.store).Lookup(ctx, caller, key)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Op: "lookup saved response", Err: err}
	}
	if resp == nil {
		return nil, nil
	}
	return &PublishResult{Response: resp, Replayed: true}, nil
}

