package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatusPending is the recognized default status for new tasks.
// Status is deliberately an open string: clients may set any value,
// "pending" is simply what a task starts as.
const TaskStatusPending = "pending"

// Common task validation errors
var (
	ErrEmptyTaskID    = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwner = errors.New("task owner cannot be empty")
	ErrEmptyTitle     = errors.New("task title cannot be empty")
	ErrEmptyDeadline  = errors.New("task deadline cannot be empty")
)

// Task represents a single task owned by a user. A task's deadline together
// with its reminder offsets determines the reminder jobs scheduled for it.
type Task struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline"`

	// Reminders holds the offsets, in seconds before the deadline, at which
	// reminder notifications fire. Order is preserved exactly as supplied.
	Reminders []int `json:"reminders"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a new Task owned by the given user. The owner is fixed at
// creation and never reassigned. Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, title, description string, deadline time.Time, reminders []int) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Deadline:    deadline,
		Reminders:   reminders,
		Status:      TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwner
	}
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if t.Deadline.IsZero() {
		return ErrEmptyDeadline
	}
	for _, offset := range t.Reminders {
		if offset < 0 {
			return fmt.Errorf("%w: offset %d is negative", ErrInvalidReminders, offset)
		}
	}
	return nil
}

// Clone returns a deep copy of the task. Event payloads carry clones so that
// later mutations of the original cannot race with background consumers.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Reminders = append([]int(nil), t.Reminders...)
	return &clone
}

// EncodeReminders renders reminder offsets in their persisted form:
// a comma-joined list of integers, empty for no reminders.
func EncodeReminders(reminders []int) string {
	if len(reminders) == 0 {
		return ""
	}
	parts := make([]string, len(reminders))
	for i, offset := range reminders {
		parts[i] = strconv.Itoa(offset)
	}
	return strings.Join(parts, ",")
}

// ParseReminders parses the persisted comma-joined form back into an ordered
// offset list. Empty segments are discarded, so "", "," and ",," all decode
// to an empty list.
func ParseReminders(encoded string) ([]int, error) {
	reminders := []int{}
	for _, part := range strings.Split(encoded, ",") {
		if part == "" {
			continue
		}
		offset, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidReminders, part)
		}
		reminders = append(reminders, offset)
	}
	return reminders, nil
}
