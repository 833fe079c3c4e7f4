package reminder

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors returned by queue implementations.
var (
	// ErrQueueClosed is returned by Enqueue after the queue has been stopped.
	ErrQueueClosed = errors.New("reminder queue is closed")
)

// Queue is the holding area for reminder jobs with a future fire time.
// The scheduler depends only on this interface; MemQueue provides the
// single-process implementation and redisq.Queue the broker-backed one.
type Queue interface {
	// Enqueue accepts a job for later delivery. It never blocks until the
	// job's fire time; a job whose fire time is already in the past is
	// accepted and fires immediately. The context bounds only the handoff
	// to the queue backend.
	Enqueue(ctx context.Context, job Job) error

	// CancelTask removes all pending jobs belonging to the given task and
	// returns how many were removed. Jobs already handed to a worker are
	// not recalled.
	CancelTask(ctx context.Context, taskID uuid.UUID) (int, error)
}
