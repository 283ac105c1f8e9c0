package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/repository"
	"github.com/taskwarden/backend/usecase/alert"
)

// TaskView is a task with its deadline classification resolved for
// presentation. The classification is computed per cycle and never cached on
// the task itself.
type TaskView struct {
	domain.Task
	State domain.DeadlineState `json:"deadline_state"`
}

// RenderModel is the presentation-ready view published after each refresh
// cycle: the viewer's visible tasks, an optional aggregate deadline alert and
// the last surfaced error.
type RenderModel struct {
	Viewer      domain.Principal `json:"viewer"`
	Tasks       []TaskView       `json:"tasks"`
	Alert       string           `json:"alert,omitempty"`
	Error       string           `json:"error,omitempty"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// TaskPatch carries the fields a member may edit on their own tasks. Nil
// fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Status      *domain.Status
}

// board is one viewer's transient snapshot. The controller owns it
// exclusively; filters and classifiers only ever read copies.
type board struct {
	visible []domain.Task
	lastErr string
}

// Controller orchestrates the refresh cycle (fetch, filter, classify, alert)
// and the role-gated mutations. It holds refreshable per-viewer snapshots but
// never authoritative state.
type Controller struct {
	tasks  repository.TaskRepository
	alerts *alert.Evaluator
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	boards map[string]*board
}

func New(tasks repository.TaskRepository, alerts *alert.Evaluator, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		tasks:  tasks,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
		boards: make(map[string]*board),
	}
}

// WithClock overrides the controller's time source.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	if now != nil {
		c.now = now
	}
	return c
}

// Refresh runs one full cycle for the viewer: fetch all tasks, reduce to the
// visible set, classify, evaluate deadline alerts and publish the render
// model. A fetch failure keeps the previous snapshot and surfaces a single
// error message in its place; overlapping refreshes resolve last-wins.
func (c *Controller) Refresh(ctx context.Context, viewer domain.Principal) *RenderModel {
	all, err := c.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		c.logger.Error("task fetch failed", zap.String("viewer", viewer.Email), zap.Error(err))
		return c.publish(viewer, nil, "", "Failed to fetch tasks", true)
	}

	visible := domain.Visible(all, viewer.Email, viewer.Role)

	var alertMsg string
	if c.alerts != nil {
		result := c.alerts.Evaluate(ctx, visible)
		alertMsg = result.Message
	}

	return c.publish(viewer, visible, alertMsg, "", false)
}

// CreateTask stores a new task and re-runs the refresh cycle. For a member
// principal this is a silent no-op: the role check runs before the request is
// even constructed, so the repository sees zero calls.
func (c *Controller) CreateTask(ctx context.Context, viewer domain.Principal, task *domain.Task) (*domain.Task, error) {
	if !viewer.IsAdmin() {
		return nil, nil
	}
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	task.Status = domain.StatusPending

	created, err := c.tasks.Create(ctx, task)
	if err != nil {
		c.setError(viewer, "Failed to create task")
		return nil, domain.WrapError(domain.ErrCodeInternal, "create task", err)
	}

	c.clearError(viewer)
	c.Refresh(ctx, viewer)
	return created, nil
}

// UpdateTaskStatus is the admin bulk-status action: it patches only the
// status and re-runs the refresh cycle. Silent no-op for members.
func (c *Controller) UpdateTaskStatus(ctx context.Context, viewer domain.Principal, taskID string, status domain.Status) error {
	if !viewer.IsAdmin() {
		return nil
	}

	task, err := c.tasks.GetByID(ctx, taskID)
	if err != nil {
		c.setError(viewer, "Failed to update task")
		return err
	}
	task.Status = status

	if err := c.tasks.Update(ctx, task); err != nil {
		c.setError(viewer, "Failed to update task")
		return domain.WrapError(domain.ErrCodeInternal, "update task status", err)
	}

	c.clearError(viewer)
	c.Refresh(ctx, viewer)
	return nil
}

// UpdateTaskFields is the member edit path, permitted only on tasks in the
// member's own visible set. The snapshot is patched optimistically before the
// round-trip; a failed round-trip surfaces an error but does not roll the
// patch back.
func (c *Controller) UpdateTaskFields(ctx context.Context, viewer domain.Principal, taskID string, patch TaskPatch) error {
	task, err := c.tasks.GetByID(ctx, taskID)
	if err != nil {
		c.setError(viewer, "Failed to update task")
		return err
	}
	if !viewer.IsAdmin() && task.Assignee != viewer.Email {
		return domain.ErrForbidden
	}

	applyPatch(task, patch)
	c.patchSnapshot(viewer, *task)

	if err := c.tasks.Update(ctx, task); err != nil {
		c.setError(viewer, "Failed to update task")
		return domain.WrapError(domain.ErrCodeInternal, "update task fields", err)
	}

	c.clearError(viewer)
	return nil
}

// DeleteTask removes a task and re-runs the refresh cycle. Silent no-op for
// members.
func (c *Controller) DeleteTask(ctx context.Context, viewer domain.Principal, taskID string) error {
	if !viewer.IsAdmin() {
		return nil
	}

	if err := c.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		c.setError(viewer, "Failed to delete task")
		return domain.WrapError(domain.ErrCodeInternal, "delete task", err)
	}

	c.clearError(viewer)
	c.Refresh(ctx, viewer)
	return nil
}

// publish stores the new snapshot and derives the render model under lock.
func (c *Controller) publish(viewer domain.Principal, visible []domain.Task, alertMsg, errMsg string, keepSnapshot bool) *RenderModel {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.board(viewer)
	if keepSnapshot {
		visible = b.visible
	} else {
		b.visible = visible
	}
	if errMsg != "" {
		b.lastErr = errMsg
	} else {
		b.lastErr = ""
	}

	views := make([]TaskView, 0, len(visible))
	for _, task := range visible {
		views = append(views, TaskView{
			Task:  task,
			State: domain.Classify(task.Deadline, task.Status, now),
		})
	}

	return &RenderModel{
		Viewer:      viewer,
		Tasks:       views,
		Alert:       alertMsg,
		Error:       b.lastErr,
		RefreshedAt: now,
	}
}

func (c *Controller) patchSnapshot(viewer domain.Principal, task domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.board(viewer)
	for i := range b.visible {
		if b.visible[i].ID == task.ID {
			b.visible[i] = task
			return
		}
	}
}

// Snapshot returns the viewer's current visible set with classifications,
// without re-fetching.
func (c *Controller) Snapshot(viewer domain.Principal) *RenderModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	b := c.board(viewer)

	views := make([]TaskView, 0, len(b.visible))
	for _, task := range b.visible {
		views = append(views, TaskView{
			Task:  task,
			State: domain.Classify(task.Deadline, task.Status, now),
		})
	}
	return &RenderModel{
		Viewer:      viewer,
		Tasks:       views,
		Error:       b.lastErr,
		RefreshedAt: now,
	}
}

func (c *Controller) setError(viewer domain.Principal, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board(viewer).lastErr = msg
}

func (c *Controller) clearError(viewer domain.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board(viewer).lastErr = ""
}

// board returns the viewer's board, creating it on first use. Callers hold the lock.
func (c *Controller) board(viewer domain.Principal) *board {
	b, ok := c.boards[viewer.Email]
	if !ok {
		b = &board{}
		c.boards[viewer.Email] = b
	}
	return b
}

func applyPatch(task *domain.Task, patch TaskPatch) {
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Deadline != nil {
		task.Deadline = *patch.Deadline
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
}
