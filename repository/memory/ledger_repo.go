package memory

import (
	"context"
	"sync"

	"github.com/taskwarden/backend/repository"
)

type dispatchLedger struct {
	mu    sync.RWMutex
	marks map[string]struct{}
}

// NewDispatchLedger creates a process-local dispatch ledger. It resets on
// restart, so warnings may repeat across restarts; duplication within a
// running process is prevented.
func NewDispatchLedger() repository.DispatchLedger {
	return &dispatchLedger{marks: make(map[string]struct{})}
}

func (l *dispatchLedger) Marked(_ context.Context, taskID, window string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.marks[taskID+":"+window]
	return ok, nil
}

func (l *dispatchLedger) Mark(_ context.Context, taskID, window string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marks[taskID+":"+window] = struct{}{}
	return nil
}
