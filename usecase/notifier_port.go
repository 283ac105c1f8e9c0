package usecase

import (
	"context"
	"time"
)

// DeadlineWarning is the payload handed to the notification dispatch endpoint.
type DeadlineWarning struct {
	TaskID    string    `json:"-"`
	Email     string    `json:"email"`
	TaskTitle string    `json:"taskTitle"`
	Deadline  time.Time `json:"deadline"`
	Message   string    `json:"message"`
}

// Notifier abstracts the outbound notification dispatch API so use cases stay
// transport-agnostic.
type Notifier interface {
	Send(ctx context.Context, warning DeadlineWarning) error
}
