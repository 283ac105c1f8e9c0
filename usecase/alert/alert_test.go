package alert_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/repository/memory"
	"github.com/taskwarden/backend/usecase"
	"github.com/taskwarden/backend/usecase/alert"
)

type fakeNotifier struct {
	sent    []usecase.DeadlineWarning
	failFor map[string]bool
}

func (f *fakeNotifier) Send(_ context.Context, warning usecase.DeadlineWarning) error {
	if f.failFor[warning.TaskID] {
		return errors.New("dispatch endpoint unreachable")
	}
	f.sent = append(f.sent, warning)
	return nil
}

type fakeRetry struct {
	deferred []usecase.DeadlineWarning
}

func (f *fakeRetry) Defer(_ context.Context, warning usecase.DeadlineWarning) error {
	f.deferred = append(f.deferred, warning)
	return nil
}

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func approachingTask(id, assignee string) domain.Task {
	return domain.Task{
		ID:       id,
		Title:    "task " + id,
		Assignee: assignee,
		Deadline: testNow.Add(2 * 24 * time.Hour),
		Status:   domain.StatusPending,
	}
}

func newEvaluator(notifier usecase.Notifier, retry alert.RetryQueue) *alert.Evaluator {
	ledger := memory.NewDispatchLedger()
	return alert.New(notifier, ledger, retry, nil).WithClock(func() time.Time { return testNow })
}

func TestEvaluateDispatchesOncePerTask(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	ev := newEvaluator(notifier, nil)

	tasks := []domain.Task{approachingTask("t1", "a@x.com")}

	first := ev.Evaluate(context.Background(), tasks)
	require.Len(t, first.Dispatched, 1)
	assert.Equal(t, "You have 1 task(s) with approaching deadlines! Check your email for details.", first.Message)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "a@x.com", notifier.sent[0].Email)

	second := ev.Evaluate(context.Background(), tasks)
	assert.Empty(t, second.Dispatched)
	assert.Empty(t, second.Message)
	assert.Len(t, notifier.sent, 1, "re-observing a notified task must not re-dispatch")
}

func TestEvaluateSkipsNonApproachingStates(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	ev := newEvaluator(notifier, nil)

	tasks := []domain.Task{
		{ID: "overdue", Assignee: "a@x.com", Deadline: testNow.Add(-24 * time.Hour), Status: domain.StatusPending},
		approachingTask("soon", "a@x.com"),
		{ID: "done", Assignee: "a@x.com", Deadline: testNow.Add(-24 * time.Hour), Status: domain.StatusCompleted},
		{ID: "far", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}

	result := ev.Evaluate(context.Background(), tasks)

	require.Len(t, result.Dispatched, 1)
	assert.Equal(t, "soon", result.Dispatched[0].ID)
	assert.Equal(t, "You have 1 task(s) with approaching deadlines! Check your email for details.", result.Message)
}

func TestEvaluateFailureDoesNotBlockRemaining(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{failFor: map[string]bool{"t1": true}}
	retry := &fakeRetry{}
	ev := newEvaluator(notifier, retry)

	tasks := []domain.Task{
		approachingTask("t1", "a@x.com"),
		approachingTask("t2", "b@x.com"),
	}

	result := ev.Evaluate(context.Background(), tasks)

	// Both were marked; the aggregate reflects marks, not delivery.
	require.Len(t, result.Dispatched, 2)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, "You have 2 task(s) with approaching deadlines! Check your email for details.", result.Message)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "t2", notifier.sent[0].TaskID)

	require.Len(t, retry.deferred, 1)
	assert.Equal(t, "t1", retry.deferred[0].TaskID)
}

func TestEvaluateDispatchOrderFollowsFetchOrder(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	ev := newEvaluator(notifier, nil)

	tasks := []domain.Task{
		approachingTask("first", "a@x.com"),
		approachingTask("second", "a@x.com"),
		approachingTask("third", "a@x.com"),
	}

	ev.Evaluate(context.Background(), tasks)

	require.Len(t, notifier.sent, 3)
	assert.Equal(t, "first", notifier.sent[0].TaskID)
	assert.Equal(t, "second", notifier.sent[1].TaskID)
	assert.Equal(t, "third", notifier.sent[2].TaskID)
}

func TestEvaluateWarningMentionsDeadline(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	ev := newEvaluator(notifier, nil)

	ev.Evaluate(context.Background(), []domain.Task{approachingTask("t1", "a@x.com")})

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Message, `Task "task t1" is due on March 12, 2025. Please complete it soon.`)
}

func TestEvaluateEmptySetProducesNothing(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	ev := newEvaluator(notifier, nil)

	result := ev.Evaluate(context.Background(), nil)

	assert.Empty(t, result.Dispatched)
	assert.Empty(t, result.Message)
	assert.Zero(t, result.Failures)
	assert.Empty(t, notifier.sent)
}
