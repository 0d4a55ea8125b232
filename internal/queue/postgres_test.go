//go:build integration

package queue_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/queue"
	"github.com/sungwon/newsletter/internal/storage"
	"github.com/sungwon/newsletter/internal/storage/pgtest"
)

var sharedDB *storage.DB

func TestMain(m *testing.M) {
	db, cleanup, err := pgtest.Start(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}
	sharedDB = db
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func seedIssue(t *testing.T, emails ...string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	if err := pgtest.Reset(ctx, sharedDB); err != nil {
		t.Fatalf("reset: %v", err)
	}

	issueID := uuid.New()
	err := sharedDB.ExecTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertNewsletterIssue(ctx, storage.InsertNewsletterIssueParams{
			NewsletterIssueID: issueID,
			Title:             "T",
			TextContent:       "T",
			HtmlContent:       "<p>T</p>",
			PublishedAt:       time.Now().UTC(),
		}); err != nil {
			return err
		}
		recipients := make([]domain.SubscriberEmail, 0, len(emails))
		for _, e := range emails {
			r, err := domain.ParseSubscriberEmail(e)
			if err != nil {
				return err
			}
			recipients = append(recipients, r)
		}
		_, err := queue.Enqueue(ctx, q, issueID, recipients)
		return err
	})
	if err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	return issueID
}

func pending(t *testing.T) int64 {
	t.Helper()
	n, err := sharedDB.Queries().CountDeliveryTasks(context.Background())
	if err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	return n
}

func TestClaimOne_EmptyQueue(t *testing.T) {
	seedIssue(t)
	q := queue.NewPostgres(sharedDB)

	_, err := q.ClaimOne(context.Background())
	if !errors.Is(err, queue.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestLease_CompleteDeletesTask(t *testing.T) {
	issueID := seedIssue(t, "one@example.com")
	q := queue.NewPostgres(sharedDB)
	ctx := context.Background()

	lease, err := q.ClaimOne(ctx)
	if err != nil {
		t.Fatalf("ClaimOne failed: %v", err)
	}
	if lease.Task().IssueID != issueID || lease.Task().SubscriberEmail != "one@example.com" {
		t.Fatalf("unexpected task: %+v", lease.Task())
	}
	if err := lease.Complete(ctx); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if n := pending(t); n != 0 {
		t.Errorf("expected empty queue after Complete, got %d", n)
	}
}

func TestLease_ReleaseKeepsTask(t *testing.T) {
	seedIssue(t, "one@example.com")
	q := queue.NewPostgres(sharedDB)
	ctx := context.Background()

	lease, err := q.ClaimOne(ctx)
	if err != nil {
		t.Fatalf("ClaimOne failed: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if n := pending(t); n != 1 {
		t.Errorf("expected task to stay queued, got %d", n)
	}

	again, err := q.ClaimOne(ctx)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	_ = again.Release(ctx)
}

func TestLease_CancelledContextStillReleases(t *testing.T) {
	seedIssue(t, "one@example.com")
	q := queue.NewPostgres(sharedDB)

	ctx, cancel := context.WithCancel(context.Background())
	lease, err := q.ClaimOne(ctx)
	if err != nil {
		t.Fatalf("ClaimOne failed: %v", err)
	}
	cancel()
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release after cancel failed: %v", err)
	}

	again, err := q.ClaimOne(context.Background())
	if err != nil {
		t.Fatalf("task should be claimable after release, got %v", err)
	}
	_ = again.Release(context.Background())
}

func TestClaimOne_ConcurrentWorkersNeverShareATask(t *testing.T) {
	emails := make([]string, 20)
	for i := range emails {
		emails[i] = fmt.Sprintf("reader%02d@example.com", i)
	}
	seedIssue(t, emails...)
	q := queue.NewPostgres(sharedDB)

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			for {
				lease, err := q.ClaimOne(ctx)
				if errors.Is(err, queue.ErrEmpty) {
					return
				}
				if err != nil {
					t.Errorf("ClaimOne failed: %v", err)
					return
				}
				mu.Lock()
				seen[lease.Task().SubscriberEmail]++
				mu.Unlock()
				if err := lease.Complete(ctx); err != nil {
					t.Errorf("Complete failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if len(seen) != len(emails) {
		t.Errorf("expected %d distinct tasks, got %d", len(emails), len(seen))
	}
	for email, n := range seen {
		if n != 1 {
			t.Errorf("task %s was processed %d times", email, n)
		}
	}
	if n := pending(t); n != 0 {
		t.Errorf("expected queue drained, got %d", n)
	}
}

func TestReadStats_CountsPerIssue(t *testing.T) {
	issueID := seedIssue(t, "a@example.com", "b@example.com")

	s, err := queue.ReadStats(context.Background(), sharedDB.Queries())
	if err != nil {
		t.Fatalf("ReadStats failed: %v", err)
	}
	if s.Total != 2 || len(s.ByIssue) != 1 || s.ByIssue[0].IssueID != issueID {
		t.Errorf("unexpected stats: %+v", s)
	}
}
