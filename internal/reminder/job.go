// Package reminder implements the reminder scheduling and delivery core:
// deriving jobs from a task's deadline and offsets, holding them in a queue
// until due, and dispatching them to a delivery action at least once.
package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Payload is the notification content carried by a reminder job. It is what
// the delivery channel receives; the queue treats it as opaque.
type Payload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Job is a single scheduled reminder: fire at FireAt, deliver Payload.
// Jobs have no identity beyond the (task, offset) pair that produced them;
// TaskID exists so that all of a task's jobs can be cancelled together.
type Job struct {
	ID      uuid.UUID `json:"id"`
	TaskID  uuid.UUID `json:"task_id"`
	FireAt  time.Time `json:"fire_at"`
	Payload Payload   `json:"payload"`
}

// Deliverer is the external notification channel. Implementations are invoked
// with the job payload at or after its fire time, never before. Delivery is
// at-least-once: duplicates are tolerable, silent loss is not.
type Deliverer interface {
	Deliver(ctx context.Context, payload Payload) error
}

// DeliverFunc adapts a plain function to the Deliverer interface.
type DeliverFunc func(ctx context.Context, payload Payload) error

// Deliver implements Deliverer.
func (f DeliverFunc) Deliver(ctx context.Context, payload Payload) error {
	return f(ctx, payload)
}
