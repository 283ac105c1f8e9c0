package repository

import "context"

// DispatchLedger records which (task, warning-window) pairs have already been
// dispatched, so repeated evaluation cycles never re-alert the same deadline.
// Implementations choose the lifecycle: the in-memory ledger resets on process
// restart, the Redis ledger survives it.
type DispatchLedger interface {
	Marked(ctx context.Context, taskID, window string) (bool, error)
	Mark(ctx context.Context, taskID, window string) error
}
