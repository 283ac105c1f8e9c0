package services

import (
	"context"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/internal/infrastructure/outbox"
	"github.com/taskwarden/backend/usecase"
	"github.com/taskwarden/backend/usecase/alert"
)

// OutboxBridge adapts the bolt outbox store to the alert evaluator's retry
// port.
type OutboxBridge struct {
	store *outbox.Store
}

func NewOutboxBridge(store *outbox.Store) *OutboxBridge {
	return &OutboxBridge{store: store}
}

func (b *OutboxBridge) Defer(_ context.Context, warning usecase.DeadlineWarning) error {
	if b.store == nil {
		return domain.ErrInvalidPayload
	}
	return b.store.Enqueue(outbox.Envelope{
		TaskID:    warning.TaskID,
		Email:     warning.Email,
		TaskTitle: warning.TaskTitle,
		Deadline:  warning.Deadline,
		Message:   warning.Message,
	})
}

var _ alert.RetryQueue = (*OutboxBridge)(nil)
