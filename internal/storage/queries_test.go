//go:build integration

package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sungwon/newsletter/internal/storage"
)

// --- Subscription Tests ---

func createSubscriber(t *testing.T, q *storage.Queries, email string, confirm bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	if err := q.InsertSubscription(ctx, storage.InsertSubscriptionParams{
		ID:           id,
		Email:        email,
		Name:         "Test Subscriber",
		SubscribedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("InsertSubscription failed: %v", err)
	}
	if confirm {
		if err := q.ConfirmSubscriber(ctx, id); err != nil {
			t.Fatalf("ConfirmSubscriber failed: %v", err)
		}
	}
	return id
}

func TestSubscriptionToken_RoundTrip(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	id := createSubscriber(t, queries, "token-"+uuid.NewString()[:8]+"@example.com", false)
	token := "tok" + uuid.NewString()[:22]
	if err := queries.InsertSubscriptionToken(ctx, storage.InsertSubscriptionTokenParams{
		SubscriptionToken: token,
		SubscriberID:      id,
	}); err != nil {
		t.Fatalf("InsertSubscriptionToken failed: %v", err)
	}

	got, err := queries.GetSubscriberIDFromToken(ctx, token)
	if err != nil {
		t.Fatalf("GetSubscriberIDFromToken failed: %v", err)
	}
	if got != id {
		t.Errorf("expected subscriber %s, got %s", id, got)
	}

	if _, err := queries.GetSubscriberIDFromToken(ctx, "unknown-token"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected ErrNoRows for unknown token, got %v", err)
	}
}

func TestGetPendingSubscriptionToken_OnlyWhilePending(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	email := "pending-" + uuid.NewString()[:8] + "@example.com"
	id := createSubscriber(t, queries, email, false)
	token := "tok" + uuid.NewString()[:22]
	if err := queries.InsertSubscriptionToken(ctx, storage.InsertSubscriptionTokenParams{
		SubscriptionToken: token,
		SubscriberID:      id,
	}); err != nil {
		t.Fatalf("InsertSubscriptionToken failed: %v", err)
	}

	got, err := queries.GetPendingSubscriptionToken(ctx, email)
	if err != nil {
		t.Fatalf("GetPendingSubscriptionToken failed: %v", err)
	}
	if got != token {
		t.Errorf("expected token %s, got %s", token, got)
	}

	if err := queries.ConfirmSubscriber(ctx, id); err != nil {
		t.Fatalf("ConfirmSubscriber failed: %v", err)
	}
	if _, err := queries.GetPendingSubscriptionToken(ctx, email); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected ErrNoRows once confirmed, got %v", err)
	}
}

func TestListConfirmedSubscriberEmails_SkipsPending(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	confirmed := "confirmed-" + uuid.NewString()[:8] + "@example.com"
	pending := "pending-" + uuid.NewString()[:8] + "@example.com"
	createSubscriber(t, queries, confirmed, true)
	createSubscriber(t, queries, pending, false)

	emails, err := queries.ListConfirmedSubscriberEmails(ctx)
	if err != nil {
		t.Fatalf("ListConfirmedSubscriberEmails failed: %v", err)
	}

	var sawConfirmed bool
	for _, e := range emails {
		if e == pending {
			t.Errorf("pending subscriber %s should not be listed", pending)
		}
		if e == confirmed {
			sawConfirmed = true
		}
	}
	if !sawConfirmed {
		t.Errorf("expected confirmed subscriber %s in list", confirmed)
	}
}

// --- Delivery Queue Tests ---

func insertIssue(t *testing.T, q *storage.Queries) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := q.InsertNewsletterIssue(context.Background(), storage.InsertNewsletterIssueParams{
		NewsletterIssueID: id,
		Title:             "Issue",
		TextContent:       "text body",
		HtmlContent:       "<p>html body</p>",
		PublishedAt:       time.Now().UTC(),
	}); err != nil {
		t.Fatalf("InsertNewsletterIssue failed: %v", err)
	}
	return id
}

func TestEnqueueDeliveryTasks_OneRowPerEmail(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	issueID := insertIssue(t, queries)
	n, err := queries.EnqueueDeliveryTasks(ctx, storage.EnqueueDeliveryTasksParams{
		NewsletterIssueID: issueID,
		SubscriberEmails:  []string{"a@example.com", "b@example.com", "a@example.com"},
	})
	if err != nil {
		t.Fatalf("EnqueueDeliveryTasks failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows enqueued, got %d", n)
	}

	count, err := queries.CountDeliveryTasks(ctx)
	if err != nil {
		t.Fatalf("CountDeliveryTasks failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 pending tasks, got %d", count)
	}

	byIssue, err := queries.CountDeliveryTasksByIssue(ctx)
	if err != nil {
		t.Fatalf("CountDeliveryTasksByIssue failed: %v", err)
	}
	if len(byIssue) != 1 || byIssue[0].NewsletterIssueID != issueID || byIssue[0].Pending != 2 {
		t.Errorf("unexpected per-issue counts: %+v", byIssue)
	}
}

func TestEnqueueDeliveryTasks_EmptyList(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	n, err := queries.EnqueueDeliveryTasks(ctx, storage.EnqueueDeliveryTasksParams{
		NewsletterIssueID: insertIssue(t, queries),
		SubscriberEmails:  []string{},
	})
	if err != nil {
		t.Fatalf("EnqueueDeliveryTasks failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows enqueued, got %d", n)
	}
}

func TestClaimDeliveryTask_SkipsLockedRows(t *testing.T) {
	db, queries := setupTestDB(t)
	ctx := context.Background()

	issueID := insertIssue(t, queries)
	if _, err := queries.EnqueueDeliveryTasks(ctx, storage.EnqueueDeliveryTasksParams{
		NewsletterIssueID: issueID,
		SubscriberEmails:  []string{"one@example.com", "two@example.com"},
	}); err != nil {
		t.Fatalf("EnqueueDeliveryTasks failed: %v", err)
	}

	tx1, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx1.Rollback(ctx) //nolint:errcheck

	tx2, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx2.Rollback(ctx) //nolint:errcheck

	first, err := queries.WithTx(tx1).ClaimDeliveryTask(ctx)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	second, err := queries.WithTx(tx2).ClaimDeliveryTask(ctx)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if first.SubscriberEmail == second.SubscriberEmail {
		t.Fatalf("both transactions claimed %s", first.SubscriberEmail)
	}

	tx3, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx3.Rollback(ctx) //nolint:errcheck

	if _, err := queries.WithTx(tx3).ClaimDeliveryTask(ctx); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows while all rows are locked, got %v", err)
	}
}

func TestDeleteDeliveryTask_RollbackKeepsRow(t *testing.T) {
	db, queries := setupTestDB(t)
	ctx := context.Background()

	issueID := insertIssue(t, queries)
	if _, err := queries.EnqueueDeliveryTasks(ctx, storage.EnqueueDeliveryTasksParams{
		NewsletterIssueID: issueID,
		SubscriberEmails:  []string{"keep@example.com"},
	}); err != nil {
		t.Fatalf("EnqueueDeliveryTasks failed: %v", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	q := queries.WithTx(tx)
	task, err := q.ClaimDeliveryTask(ctx)
	if err != nil {
		t.Fatalf("ClaimDeliveryTask failed: %v", err)
	}
	if err := q.DeleteDeliveryTask(ctx, storage.DeleteDeliveryTaskParams{
		NewsletterIssueID: task.NewsletterIssueID,
		SubscriberEmail:   task.SubscriberEmail,
	}); err != nil {
		t.Fatalf("DeleteDeliveryTask failed: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	count, err := queries.CountDeliveryTasks(ctx)
	if err != nil {
		t.Fatalf("CountDeliveryTasks failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected task to survive rollback, got %d rows", count)
	}
}

// --- Idempotency Tests ---

func createUser(t *testing.T, q *storage.Queries) storage.User {
	t.Helper()
	user, err := q.CreateUser(context.Background(), storage.CreateUserParams{
		UserID:       uuid.New(),
		Username:     "operator-" + uuid.NewString()[:8],
		PasswordHash: "$2a$12$hashhere",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestSaveResponse_SecondInsertAffectsNoRows(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	user := createUser(t, queries)
	params := storage.SaveResponseParams{
		UserID:             user.UserID,
		IdempotencyKey:     "key-1",
		ResponseStatusCode: 303,
		ResponseHeaders:    []byte(`{"Location":["/admin/newsletters"]}`),
		ResponseBody:       []byte{},
	}

	n, err := queries.SaveResponse(ctx, params)
	if err != nil {
		t.Fatalf("first SaveResponse failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row affected, got %d", n)
	}

	params.ResponseStatusCode = 500
	n, err = queries.SaveResponse(ctx, params)
	if err != nil {
		t.Fatalf("second SaveResponse failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows affected on conflict, got %d", n)
	}

	saved, err := queries.GetSavedResponse(ctx, storage.GetSavedResponseParams{
		UserID:         user.UserID,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("GetSavedResponse failed: %v", err)
	}
	if saved.ResponseStatusCode != 303 {
		t.Errorf("expected first response to win, got status %d", saved.ResponseStatusCode)
	}
}

func TestSaveResponse_KeysScopedPerUser(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	alice := createUser(t, queries)
	bob := createUser(t, queries)

	for _, u := range []storage.User{alice, bob} {
		n, err := queries.SaveResponse(ctx, storage.SaveResponseParams{
			UserID:             u.UserID,
			IdempotencyKey:     "shared-key",
			ResponseStatusCode: 303,
			ResponseHeaders:    []byte(`{}`),
			ResponseBody:       []byte{},
		})
		if err != nil {
			t.Fatalf("SaveResponse failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected key to be free for user %s", u.Username)
		}
	}
}

func TestUpdateUserPassword(t *testing.T) {
	_, queries := setupTestDB(t)
	ctx := context.Background()

	user := createUser(t, queries)
	if err := queries.UpdateUserPassword(ctx, storage.UpdateUserPasswordParams{
		UserID:       user.UserID,
		PasswordHash: "$2a$12$newhash",
	}); err != nil {
		t.Fatalf("UpdateUserPassword failed: %v", err)
	}

	got, err := queries.GetUserByUsername(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.PasswordHash != "$2a$12$newhash" {
		t.Errorf("expected updated hash, got %s", got.PasswordHash)
	}
}
