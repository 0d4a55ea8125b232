package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sungwon/newsletter/internal/clock"
	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/provider"
	"github.com/sungwon/newsletter/internal/queue"
	"github.com/sungwon/newsletter/internal/storage"
)

// memQueue is an in-memory queue.Claimer with lease semantics: a claimed
// task is invisible to other callers until it is completed or released.
type memQueue struct {
	mu       sync.Mutex
	tasks    []queue.Task
	claimed  map[queue.Task]bool
	released int
	claimErr error
	issues   *memIssues
}

func newMemQueue(tasks ...queue.Task) *memQueue {
	return &memQueue{tasks: tasks, claimed: make(map[queue.Task]bool), issues: issueStore()}
}

func (q *memQueue) ClaimOne(_ context.Context) (queue.Lease, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	for _, t := range q.tasks {
		if !q.claimed[t] {
			q.claimed[t] = true
			return &memLease{q: q, task: t}, nil
		}
	}
	return nil, queue.ErrEmpty
}

func (q *memQueue) remaining() []queue.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Task(nil), q.tasks...)
}

type memLease struct {
	q    *memQueue
	task queue.Task
	done bool
}

func (l *memLease) Task() queue.Task { return l.task }

func (l *memLease) Issue(ctx context.Context) (storage.NewsletterIssue, error) {
	return l.q.issues.GetNewsletterIssue(ctx, l.task.IssueID)
}

func (l *memLease) Complete(_ context.Context) error {
	l.q.mu.Lock()
	defer l.q.mu.Unlock()
	if l.done {
		return errors.New("lease already ended")
	}
	l.done = true
	delete(l.q.claimed, l.task)
	for i, t := range l.q.tasks {
		if t == l.task {
			l.q.tasks = append(l.q.tasks[:i], l.q.tasks[i+1:]...)
			break
		}
	}
	return nil
}

func (l *memLease) Release(_ context.Context) error {
	l.q.mu.Lock()
	defer l.q.mu.Unlock()
	if l.done {
		return nil
	}
	l.done = true
	delete(l.q.claimed, l.task)
	l.q.released++
	return nil
}

type memIssues struct {
	mu     sync.Mutex
	issues map[uuid.UUID]storage.NewsletterIssue
	err    error
}

func (m *memIssues) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memIssues) GetNewsletterIssue(_ context.Context, id uuid.UUID) (storage.NewsletterIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return storage.NewsletterIssue{}, m.err
	}
	issue, ok := m.issues[id]
	if !ok {
		return storage.NewsletterIssue{}, pgx.ErrNoRows
	}
	return issue, nil
}

type sentEmail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEmail
	// failFor maps a recipient to the error returned when sending to it.
	failFor map[string]error
	block   chan struct{}
}

func (s *recordingSender) SendEmail(ctx context.Context, recipient domain.SubscriberEmail, subject, html, text string) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.failFor[recipient.String()]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{To: recipient.String(), Subject: subject, HTML: html, Text: text})
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.sent {
		out = append(out, e.To)
	}
	return out
}

var testIssue = storage.NewsletterIssue{
	NewsletterIssueID: uuid.MustParse("6f1c2a8e-4b0d-4c59-9a43-3e2a7d1b5c10"),
	Title:             "Issue #1",
	TextContent:       "plain body",
	HtmlContent:       "<p>html body</p>",
	PublishedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
}

func issueStore() *memIssues {
	return &memIssues{issues: map[uuid.UUID]storage.NewsletterIssue{testIssue.NewsletterIssueID: testIssue}}
}

func taskFor(email string) queue.Task {
	return queue.Task{IssueID: testIssue.NewsletterIssueID, SubscriberEmail: email}
}

func newTestWorker(q queue.Claimer, sender EmailSender, cfg Config, opts ...Option) *Worker {
	return New(q, sender, cfg, zerolog.Nop(), opts...)
}

func TestTryExecuteTask_EmptyQueue(t *testing.T) {
	w := newTestWorker(newMemQueue(), &recordingSender{}, Config{})

	outcome, err := w.TryExecuteTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EmptyQueue, outcome)
}

func TestTryExecuteTask_DrainsEveryRecipientOnce(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"), taskFor("b@example.com"), taskFor("c@example.com"))
	sender := &recordingSender{}
	w := newTestWorker(q, sender, Config{})
	ctx := context.Background()

	for range 3 {
		outcome, err := w.TryExecuteTask(ctx)
		require.NoError(t, err)
		assert.Equal(t, TaskCompleted, outcome)
	}
	outcome, err := w.TryExecuteTask(ctx)
	require.NoError(t, err)
	assert.Equal(t, EmptyQueue, outcome)

	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com", "c@example.com"}, sender.recipients())
	assert.Empty(t, q.remaining())

	sender.mu.Lock()
	first := sender.sent[0]
	sender.mu.Unlock()
	assert.Equal(t, "Issue #1", first.Subject)
	assert.Equal(t, "<p>html body</p>", first.HTML)
	assert.Equal(t, "plain body", first.Text)
}

func TestTryExecuteTask_InvalidStoredEmailIsDroppedWithoutSending(t *testing.T) {
	q := newMemQueue(taskFor("not-an-email"))
	sender := &recordingSender{}
	w := newTestWorker(q, sender, Config{})

	outcome, err := w.TryExecuteTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, outcome)
	assert.Empty(t, sender.recipients())
	assert.Empty(t, q.remaining())
}

func TestTryExecuteTask_SendFailureDropsTaskByDefault(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"))
	sender := &recordingSender{failFor: map[string]error{
		"a@example.com": &provider.ProviderError{Provider: "test", StatusCode: 503, Message: "unavailable"},
	}}
	w := newTestWorker(q, sender, Config{})

	outcome, err := w.TryExecuteTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, outcome)
	assert.Empty(t, q.remaining())
}

func TestTryExecuteTask_RetryTransientKeepsTaskQueued(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"))
	sender := &recordingSender{failFor: map[string]error{
		"a@example.com": &provider.ProviderError{Provider: "test", StatusCode: 503, Message: "unavailable"},
	}}
	w := newTestWorker(q, sender, Config{RetryTransient: true})

	outcome, err := w.TryExecuteTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskDeferred, outcome)
	assert.Len(t, q.remaining(), 1)
	assert.Equal(t, 1, q.released)
}

func TestTryExecuteTask_RetryTransientStillDropsPermanentFailures(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"))
	sender := &recordingSender{failFor: map[string]error{
		"a@example.com": &provider.ProviderError{Provider: "test", StatusCode: 422, Message: "inactive recipient", Permanent: true},
	}}
	w := newTestWorker(q, sender, Config{RetryTransient: true})

	outcome, err := w.TryExecuteTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, outcome)
	assert.Empty(t, q.remaining())
}

func TestTryExecuteTask_IssueLoadFailureReleasesTask(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"))
	q.issues.setErr(errors.New("connection reset"))
	w := newTestWorker(q, &recordingSender{}, Config{})

	_, err := w.TryExecuteTask(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Len(t, q.remaining(), 1)
	assert.Equal(t, 1, q.released)
}

func TestTryExecuteTask_ClaimErrorIsReturned(t *testing.T) {
	q := newMemQueue()
	q.claimErr = errors.New("database unavailable")
	w := newTestWorker(q, &recordingSender{}, Config{})

	outcome, err := w.TryExecuteTask(context.Background())
	require.Error(t, err)
	assert.Equal(t, EmptyQueue, outcome)
}

func TestTryExecuteTask_CancelledSendReleasesTask(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"))
	sender := &recordingSender{block: make(chan struct{})}
	w := newTestWorker(q, sender, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := w.TryExecuteTask(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("TryExecuteTask did not return after cancellation")
	}
	assert.Len(t, q.remaining(), 1)
	assert.Empty(t, sender.recipients())
}

func TestRun_SleepsOnEmptyQueueAndStopsOnCancel(t *testing.T) {
	q := newMemQueue()
	sender := &recordingSender{}
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	w := newTestWorker(q, sender, Config{PollInterval: 10 * time.Second}, WithClock(fake))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// The first poll finds nothing and parks on the poll timer.
	fake.WaitForTimers(1)

	q.mu.Lock()
	q.tasks = append(q.tasks, taskFor("late@example.com"))
	q.mu.Unlock()

	fake.Advance(10 * time.Second)
	// After delivering, the worker polls again straight away, finds the
	// queue empty and waits once more.
	fake.WaitForTimers(1)
	assert.Equal(t, []string{"late@example.com"}, sender.recipients())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_ContinuesAfterErrors(t *testing.T) {
	q := newMemQueue(taskFor("a@example.com"))
	q.issues.setErr(errors.New("temporarily unavailable"))
	sender := &recordingSender{}
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	w := newTestWorker(q, sender, Config{PollInterval: time.Second}, WithClock(fake))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	fake.WaitForTimers(1)
	assert.Len(t, q.remaining(), 1)

	q.issues.setErr(nil)
	fake.Advance(time.Second)
	fake.WaitForTimers(1)

	assert.Equal(t, []string{"a@example.com"}, sender.recipients())
	assert.Empty(t, q.remaining())

	cancel()
	<-done
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "task_completed", TaskCompleted.String())
	assert.Equal(t, "empty_queue", EmptyQueue.String())
	assert.Equal(t, "task_deferred", TaskDeferred.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
