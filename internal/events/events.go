// Package events decouples task mutations from the components that react to
// them. The API layer emits a TaskEvent after a successful store mutation;
// the reminder subsystem subscribes and reconciles scheduled jobs. Failures
// on the handler side are logged, never surfaced to the API caller.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quicktask/quicktask-api/internal/domain"
)

// EventType identifies the kind of task lifecycle change an event describes.
type EventType string

// Task lifecycle event types.
const (
	TaskCreated EventType = "task_created"
	TaskUpdated EventType = "task_updated"
	TaskDeleted EventType = "task_deleted"
)

// TaskEvent describes a committed change to a task. Task snapshots are
// clones: consumers may read them without racing the request path.
type TaskEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// Type indicates which lifecycle change occurred.
	Type EventType `json:"type"`

	// Task is the state of the task after the change. For TaskDeleted it is
	// the last persisted state before deletion.
	Task *domain.Task `json:"task"`

	// Previous is the state before the change. Only set for TaskUpdated.
	Previous *domain.Task `json:"previous,omitempty"`

	// OwnerEmail is the task owner's email, carried so consumers don't need
	// a user lookup to address notifications.
	OwnerEmail string `json:"owner_email"`

	// CreatedAt is the timestamp when the event was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent for the given change. The task snapshots
// are cloned defensively.
func NewTaskEvent(eventType EventType, task, previous *domain.Task, ownerEmail string) *TaskEvent {
	event := &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Task:       task.Clone(),
		OwnerEmail: ownerEmail,
		CreatedAt:  time.Now().UTC(),
	}
	if previous != nil {
		event.Previous = previous.Clone()
	}
	return event
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if any handler fails.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
