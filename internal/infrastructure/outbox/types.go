package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is a deadline warning whose dispatch failed and is awaiting retry.
type Envelope struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Email     string    `json:"email"`
	TaskTitle string    `json:"task_title"`
	Deadline  time.Time `json:"deadline"`
	Message   string    `json:"message"`
	Retries   int       `json:"retries"`
	Timestamp time.Time `json:"timestamp"`

	bucketKey []byte
}

func (e *Envelope) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
