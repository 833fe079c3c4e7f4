package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quicktask/quicktask-api/internal/events"
)

// EventHandler subscribes the scheduler to task lifecycle events so the set
// of queued jobs always tracks the task store's current truth: creation
// schedules, updates reconcile, deletion cancels.
type EventHandler struct {
	scheduler *Scheduler
	logger    *slog.Logger
}

// NewEventHandler creates an EventHandler driving the given scheduler.
func NewEventHandler(scheduler *Scheduler, log *slog.Logger) *EventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventHandler{
		scheduler: scheduler,
		logger:    log.With("component", "reminder_event_handler"),
	}
}

var _ events.EventHandler = (*EventHandler)(nil)

// HandleEvent implements events.EventHandler.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	switch event.Type {
	case events.TaskCreated:
		return h.scheduler.Schedule(ctx, event.Task, event.OwnerEmail)
	case events.TaskUpdated:
		return h.scheduler.Reconcile(ctx, event.Previous, event.Task, event.OwnerEmail)
	case events.TaskDeleted:
		return h.scheduler.Cancel(ctx, event.Task.ID)
	default:
		h.logger.Warn("ignoring unknown task event type",
			"event_id", event.ID,
			"event_type", event.Type)
		return fmt.Errorf("unknown task event type: %s", event.Type)
	}
}
