package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/repository"
	"github.com/taskwarden/backend/usecase"
)

// WindowApproaching is the single warning window in use: a deadline within
// three days. The ledger keys on (task id, window) so the window name is part
// of the dedup identity.
const WindowApproaching = "approaching"

// RetryQueue receives warnings whose immediate dispatch failed.
type RetryQueue interface {
	Defer(ctx context.Context, warning usecase.DeadlineWarning) error
}

// Evaluator decides which visible tasks need a deadline warning and dispatches
// each one at most once per ledger lifetime.
type Evaluator struct {
	notifier usecase.Notifier
	ledger   repository.DispatchLedger
	retry    RetryQueue
	logger   *zap.Logger
	now      func() time.Time
}

// Result summarizes one evaluation cycle.
type Result struct {
	// Dispatched holds the tasks marked for dispatch this cycle, in fetch order.
	Dispatched []domain.Task
	// Message is the aggregate in-app alert, empty when nothing was marked. It
	// reflects the marked count, not the delivered count: the in-app alert is a
	// backstop independent of email delivery.
	Message string
	// Failures counts per-task dispatch errors. They never abort the cycle.
	Failures int
}

func New(notifier usecase.Notifier, ledger repository.DispatchLedger, retry RetryQueue, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		notifier: notifier,
		ledger:   ledger,
		retry:    retry,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the evaluator's time source.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	if now != nil {
		e.now = now
	}
	return e
}

// Evaluate scans the visible set for approaching deadlines and dispatches a
// warning for every task not yet recorded in the ledger. Dispatches run
// sequentially in fetch order; a failure for one task does not block the rest.
func (e *Evaluator) Evaluate(ctx context.Context, visible []domain.Task) Result {
	now := e.now()
	var result Result

	for _, task := range visible {
		if domain.Classify(task.Deadline, task.Status, now) != domain.DeadlineApproaching {
			continue
		}

		marked, err := e.ledger.Marked(ctx, task.ID, WindowApproaching)
		if err != nil {
			// Dedup state is unknown; skipping keeps the at-most-once guarantee.
			e.logger.Warn("dispatch ledger lookup failed",
				zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		if marked {
			continue
		}
		if err := e.ledger.Mark(ctx, task.ID, WindowApproaching); err != nil {
			e.logger.Warn("dispatch ledger mark failed",
				zap.String("task_id", task.ID), zap.Error(err))
			continue
		}

		result.Dispatched = append(result.Dispatched, task)

		warning := warningFor(task)
		if err := e.notifier.Send(ctx, warning); err != nil {
			result.Failures++
			e.logger.Error("deadline warning dispatch failed",
				zap.String("task_id", task.ID),
				zap.String("assignee", task.Assignee),
				zap.Error(err))
			e.queueRetry(ctx, warning)
		}
	}

	if n := len(result.Dispatched); n > 0 {
		result.Message = fmt.Sprintf("You have %d task(s) with approaching deadlines! Check your email for details.", n)
	}
	return result
}

func (e *Evaluator) queueRetry(ctx context.Context, warning usecase.DeadlineWarning) {
	if e.retry == nil {
		return
	}
	if err := e.retry.Defer(ctx, warning); err != nil {
		e.logger.Error("failed to queue warning for retry",
			zap.String("task_id", warning.TaskID), zap.Error(err))
	}
}

func warningFor(task domain.Task) usecase.DeadlineWarning {
	return usecase.DeadlineWarning{
		TaskID:    task.ID,
		Email:     task.Assignee,
		TaskTitle: task.Title,
		Deadline:  task.Deadline,
		Message: fmt.Sprintf("Task %q is due on %s. Please complete it soon.",
			task.Title, task.Deadline.Format("January 2, 2006")),
	}
}
