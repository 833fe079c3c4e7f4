package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/quicktask/quicktask-api/internal/domain"
)

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// RegisterResponse is the body returned after successful registration.
type RegisterResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest is the payload for POST /auth/token.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is the body returned after successful authentication.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse is the body for GET /users/me.
type UserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CreateTaskRequest is the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"    validate:"required"`
	Reminders   []int     `json:"reminders"   validate:"dive,gte=0"`
}

// UpdateTaskRequest is the payload for PATCH /tasks/{id}. Every field is
// optional; only the fields present in the request are applied. A reminders
// list, when present, fully replaces the prior set.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"       validate:"omitempty,min=1"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Reminders   *[]int     `json:"reminders"   validate:"omitempty,dive,gte=0"`
	Status      *string    `json:"status"      validate:"omitempty,min=1"`
}

// TaskResponse is the task representation returned by the task endpoints.
type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	Owner       string    `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline"`
	Reminders   []int     `json:"reminders"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTaskResponse maps a domain task to its API representation. The owner is
// reported by username, matching the registration and token flows.
func NewTaskResponse(task *domain.Task, ownerUsername string) TaskResponse {
	reminders := task.Reminders
	if reminders == nil {
		reminders = []int{}
	}
	return TaskResponse{
		ID:          task.ID,
		Owner:       ownerUsername,
		Title:       task.Title,
		Description: task.Description,
		Deadline:    task.Deadline,
		Reminders:   reminders,
		Status:      task.Status,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
