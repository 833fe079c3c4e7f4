package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quicktask/quicktask-api/internal/api/shared"
	"github.com/quicktask/quicktask-api/internal/domain"
	"github.com/quicktask/quicktask-api/internal/events"
	"github.com/quicktask/quicktask-api/internal/store"
)

// TaskHandler handles task CRUD requests. After every successful mutation it
// emits a task lifecycle event; the reminder subsystem listens and keeps the
// job queue consistent. Emission failures are logged and never fail the
// request - task correctness must not depend on notification infrastructure.
type TaskHandler struct {
	taskStore store.TaskStore
	emitter   events.EventEmitter
	validator *validator.Validate
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskStore store.TaskStore, emitter events.EventEmitter, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskStore: taskStore,
		emitter:   emitter,
		validator: validator.New(),
		logger:    logger.With("component", "task_handler"),
	}
}

// Create handles POST /tasks, answering 200 with the created task. One
// reminder job is scheduled per offset as a side effect, via the emitted
// created event.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondUnauthorized(w, r, "Authentication required")
		return
	}

	var req CreateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := domain.NewTask(user.ID, req.Title, req.Description, req.Deadline, req.Reminders)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data: "+err.Error())
		return
	}

	if err := h.taskStore.Create(r.Context(), task); err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data")
			return
		}
		h.logger.Error("failed to create task", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create task")
		return
	}

	h.emit(r, events.NewTaskEvent(events.TaskCreated, task, nil, user.Email))

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task, user.Username))
}

// List handles GET /tasks, returning only the caller's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondUnauthorized(w, r, "Authentication required")
		return
	}

	tasks, err := h.taskStore.ListByOwner(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list tasks", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task, user.Username))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// Get handles GET /tasks/{id}. A task owned by someone else is reported as
// missing, never as forbidden.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondUnauthorized(w, r, "Authentication required")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.taskStore.GetForOwner(r.Context(), taskID, user.ID)
	if err != nil {
		h.respondTaskError(w, r, err, taskID)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task, user.Username))
}

// Update handles PATCH /tasks/{id}. Only the fields present in the payload
// are applied; a reminders list replaces the prior set wholesale. The emitted
// updated event carries the previous snapshot so the reminder subsystem can
// cancel jobs derived from the old deadline and offsets.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondUnauthorized(w, r, "Authentication required")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	var req UpdateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := h.taskStore.GetForOwner(r.Context(), taskID, user.ID)
	if err != nil {
		h.respondTaskError(w, r, err, taskID)
		return
	}
	previous := task.Clone()

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Deadline != nil {
		task.Deadline = *req.Deadline
	}
	if req.Reminders != nil {
		task.Reminders = append([]int(nil), (*req.Reminders)...)
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	task.UpdatedAt = time.Now().UTC()

	if err := task.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data: "+err.Error())
		return
	}

	if err := h.taskStore.Update(r.Context(), task); err != nil {
		h.respondTaskError(w, r, err, taskID)
		return
	}

	h.emit(r, events.NewTaskEvent(events.TaskUpdated, task, previous, user.Email))

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task, user.Username))
}

// Delete handles DELETE /tasks/{id}. Deletion cancels all of the task's
// pending reminder jobs via the emitted deleted event.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondUnauthorized(w, r, "Authentication required")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.taskStore.GetForOwner(r.Context(), taskID, user.ID)
	if err != nil {
		h.respondTaskError(w, r, err, taskID)
		return
	}

	if err := h.taskStore.Delete(r.Context(), taskID, user.ID); err != nil {
		h.respondTaskError(w, r, err, taskID)
		return
	}

	h.emit(r, events.NewTaskEvent(events.TaskDeleted, task, nil, user.Email))

	w.WriteHeader(http.StatusNoContent)
}

// emit publishes a task event, containing any failure to the logs.
func (h *TaskHandler) emit(r *http.Request, event *events.TaskEvent) {
	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to emit task event",
			"event_id", event.ID,
			"event_type", event.Type,
			"task_id", event.Task.ID,
			"error", err)
	}
}

func (h *TaskHandler) respondTaskError(w http.ResponseWriter, r *http.Request, err error, taskID uuid.UUID) {
	switch {
	case store.IsNotFoundError(err):
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrInvalidEntity):
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data")
	default:
		h.logger.Error("task store operation failed", "error", err, "task_id", taskID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// parseTaskID extracts and parses the {id} route parameter. Malformed IDs
// map to 404 at the call sites, same as unknown ones.
func parseTaskID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id, nil
}
