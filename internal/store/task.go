package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/quicktask/quicktask-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
//
// Every read and mutation is scoped to an owner: a task that exists but
// belongs to someone else behaves exactly like a task that does not exist
// (ErrTaskNotFound), so handlers cannot leak existence across owners.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetForOwner retrieves a task by ID, restricted to the given owner.
	// Returns ErrTaskNotFound if the task does not exist or is owned by
	// a different user.
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// ListByOwner returns all tasks owned by the given user.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Task, error)

	// Update persists the full task row, restricted to the task's owner.
	// The update is a single statement keyed on (id, owner_id) so concurrent
	// readers never observe a partially-applied update.
	// Returns ErrTaskNotFound if the task does not exist or is owned by
	// a different user.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task, restricted to the given owner.
	// Returns ErrTaskNotFound if the task does not exist or is owned by
	// a different user.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
