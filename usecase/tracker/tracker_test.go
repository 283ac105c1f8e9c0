package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/repository"
	"github.com/taskwarden/backend/repository/memory"
	"github.com/taskwarden/backend/usecase"
	"github.com/taskwarden/backend/usecase/alert"
	"github.com/taskwarden/backend/usecase/tracker"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

var (
	adminViewer  = domain.Principal{Username: "admin", Email: "admin@x.com", Role: domain.RoleAdmin}
	memberViewer = domain.Principal{Username: "alice", Email: "a@x.com", Role: domain.RoleMember}
)

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks []domain.Task

	listErr   error
	updateErr error
	deleteErr error

	createCalls int
	updateCalls int
	deleteCalls int
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			task := f.tasks[i]
			return &task, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (f *fakeTaskRepo) List(_ context.Context, _ repository.TaskFilter) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	task.ID = "created"
	f.tasks = append(f.tasks, *task)
	return task, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == task.ID {
			f.tasks[i] = *task
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []usecase.DeadlineWarning
}

func (f *fakeNotifier) Send(_ context.Context, warning usecase.DeadlineWarning) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, warning)
	return nil
}

func newController(repo *fakeTaskRepo) (*tracker.Controller, *fakeNotifier) {
	notifier := &fakeNotifier{}
	alerts := alert.New(notifier, memory.NewDispatchLedger(), nil, nil).
		WithClock(func() time.Time { return testNow })
	ctl := tracker.New(repo, alerts, nil).WithClock(func() time.Time { return testNow })
	return ctl, notifier
}

func TestRefreshEndToEnd(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "overdue", Title: "late", Assignee: "a@x.com", Deadline: testNow.Add(-48 * time.Hour), Status: domain.StatusPending},
		{ID: "soon", Title: "due soon", Assignee: "a@x.com", Deadline: testNow.Add(48 * time.Hour), Status: domain.StatusPending},
		{ID: "done", Title: "finished", Assignee: "a@x.com", Deadline: testNow.Add(-24 * time.Hour), Status: domain.StatusCompleted},
	}}
	ctl, notifier := newController(repo)

	model := ctl.Refresh(context.Background(), memberViewer)

	require.Len(t, model.Tasks, 3, "member assigned to all three sees all three")
	assert.Equal(t, domain.DeadlineOverdue, model.Tasks[0].State)
	assert.Equal(t, domain.DeadlineApproaching, model.Tasks[1].State)
	assert.Equal(t, domain.DeadlineCompleted, model.Tasks[2].State)

	assert.Equal(t, "You have 1 task(s) with approaching deadlines! Check your email for details.", model.Alert)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "soon", notifier.sent[0].TaskID)
	assert.Empty(t, model.Error)
}

func TestRefreshMemberSeesOnlyOwnTasks(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "mine", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
		{ID: "theirs", Assignee: "b@x.com", Deadline: testNow.Add(24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, notifier := newController(repo)

	model := ctl.Refresh(context.Background(), memberViewer)

	require.Len(t, model.Tasks, 1)
	assert.Equal(t, "mine", model.Tasks[0].ID)
	// The foreign approaching task is outside the visible set, so it is
	// never scanned for deadlines on this viewer's cycle.
	assert.Empty(t, notifier.sent)
	assert.Empty(t, model.Alert)
}

func TestRefreshDoesNotReAlertOnSecondCycle(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "soon", Assignee: "a@x.com", Deadline: testNow.Add(48 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, notifier := newController(repo)

	first := ctl.Refresh(context.Background(), memberViewer)
	assert.NotEmpty(t, first.Alert)

	second := ctl.Refresh(context.Background(), memberViewer)
	assert.Empty(t, second.Alert)
	assert.Len(t, notifier.sent, 1)
}

func TestRefreshFetchFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	ok := ctl.Refresh(context.Background(), memberViewer)
	require.Len(t, ok.Tasks, 1)

	repo.mu.Lock()
	repo.listErr = errors.New("boom")
	repo.mu.Unlock()

	failed := ctl.Refresh(context.Background(), memberViewer)
	assert.Equal(t, "Failed to fetch tasks", failed.Error)
	assert.Len(t, failed.Tasks, 1, "previous snapshot survives a failed fetch")
}

func TestCreateTaskMemberIsSilentNoOp(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{}
	ctl, _ := newController(repo)

	created, err := ctl.CreateTask(context.Background(), memberViewer, &domain.Task{Title: "sneaky"})

	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Zero(t, repo.createCalls, "member create must perform zero repository calls")
}

func TestCreateTaskAdminForcesPendingAndRefreshes(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{}
	ctl, _ := newController(repo)

	created, err := ctl.CreateTask(context.Background(), adminViewer, &domain.Task{
		Title:    "new",
		Assignee: "a@x.com",
		Deadline: testNow.Add(10 * 24 * time.Hour),
		Status:   domain.StatusCompleted, // must be overridden
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, 1, repo.createCalls)

	model := ctl.Snapshot(adminViewer)
	require.Len(t, model.Tasks, 1, "successful create re-runs the cycle")
}

func TestUpdateTaskStatusMemberIsSilentNoOp(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Assignee: "a@x.com", Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	err := ctl.UpdateTaskStatus(context.Background(), memberViewer, "t1", domain.StatusCompleted)

	require.NoError(t, err)
	assert.Zero(t, repo.updateCalls)
}

func TestUpdateTaskStatusAdmin(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	err := ctl.UpdateTaskStatus(context.Background(), adminViewer, "t1", domain.StatusCompleted)

	require.NoError(t, err)
	assert.Equal(t, 1, repo.updateCalls)
	assert.Equal(t, domain.StatusCompleted, repo.tasks[0].Status)
}

func TestUpdateTaskFieldsMemberOwnTask(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Title: "old", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)
	ctl.Refresh(context.Background(), memberViewer)

	title := "new title"
	status := domain.StatusInProgress
	err := ctl.UpdateTaskFields(context.Background(), memberViewer, "t1", tracker.TaskPatch{
		Title:  &title,
		Status: &status,
	})

	require.NoError(t, err)
	assert.Equal(t, "new title", repo.tasks[0].Title)
	assert.Equal(t, domain.StatusInProgress, repo.tasks[0].Status)
}

func TestUpdateTaskFieldsMemberForeignTaskForbidden(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Assignee: "b@x.com", Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	title := "hijack"
	err := ctl.UpdateTaskFields(context.Background(), memberViewer, "t1", tracker.TaskPatch{Title: &title})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, repo.updateCalls)
}

func TestUpdateTaskFieldsOptimisticPatchSurvivesFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Title: "old", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)
	ctl.Refresh(context.Background(), memberViewer)

	repo.mu.Lock()
	repo.updateErr = errors.New("server rejected")
	repo.mu.Unlock()

	title := "patched"
	err := ctl.UpdateTaskFields(context.Background(), memberViewer, "t1", tracker.TaskPatch{Title: &title})
	require.Error(t, err)

	model := ctl.Snapshot(memberViewer)
	require.Len(t, model.Tasks, 1)
	assert.Equal(t, "patched", model.Tasks[0].Title, "optimistic patch is not rolled back")
	assert.Equal(t, "Failed to update task", model.Error)
}

func TestDeleteTaskMemberIsSilentNoOp(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Assignee: "a@x.com", Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	err := ctl.DeleteTask(context.Background(), memberViewer, "t1")

	require.NoError(t, err)
	assert.Zero(t, repo.deleteCalls)
	assert.Len(t, repo.tasks, 1)
}

func TestDeleteTaskAdmin(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	err := ctl.DeleteTask(context.Background(), adminViewer, "t1")

	require.NoError(t, err)
	assert.Equal(t, 1, repo.deleteCalls)
	assert.Empty(t, repo.tasks)
}

func TestDeleteTaskWrappedNotFound(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{
		deleteErr: fmt.Errorf("delete task: %w", domain.ErrTaskNotFound),
	}
	ctl, _ := newController(repo)

	err := ctl.DeleteTask(context.Background(), adminViewer, "missing")

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	// A not-found delete is reported to the caller but never surfaces a
	// board-level failure message.
	assert.Empty(t, ctl.Snapshot(adminViewer).Error)
}

func TestMutationFailureReplacesPriorError(t *testing.T) {
	t.Parallel()

	repo := &fakeTaskRepo{tasks: []domain.Task{
		{ID: "t1", Title: "old", Assignee: "a@x.com", Deadline: testNow.Add(10 * 24 * time.Hour), Status: domain.StatusPending},
	}}
	ctl, _ := newController(repo)

	repo.mu.Lock()
	repo.listErr = errors.New("fetch down")
	repo.mu.Unlock()
	model := ctl.Refresh(context.Background(), memberViewer)
	assert.Equal(t, "Failed to fetch tasks", model.Error)

	repo.mu.Lock()
	repo.listErr = nil
	repo.updateErr = errors.New("update down")
	repo.mu.Unlock()

	title := "x"
	_ = ctl.UpdateTaskFields(context.Background(), memberViewer, "t1", tracker.TaskPatch{Title: &title})

	assert.Equal(t, "Failed to update task", ctl.Snapshot(memberViewer).Error,
		"a new failure replaces the prior message instead of accumulating")
}
