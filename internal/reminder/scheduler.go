package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/quicktask/quicktask-api/internal/domain"
	"github.com/quicktask/quicktask-api/internal/platform/logger"
)

// Scheduler translates a task's (deadline, reminder offsets) into reminder
// jobs and keeps the queue synchronized with the task store's current truth.
//
// Scheduling is deliberately not transactional with task persistence: a
// failure here must never roll back the task mutation that triggered it.
// Callers log the returned error and move on.
type Scheduler struct {
	queue          Queue
	enqueueTimeout time.Duration
	logger         *slog.Logger
}

// NewScheduler creates a Scheduler submitting jobs to the given queue.
// Every queue call is bounded by enqueueTimeout; a timeout counts as a
// scheduling failure.
func NewScheduler(queue Queue, enqueueTimeout time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		queue:          queue,
		enqueueTimeout: enqueueTimeout,
		logger:         log.With("component", "reminder_scheduler"),
	}
}

// Schedule enqueues one job per reminder offset, with
// fire_at = deadline - offset. Offsets larger than the time until the
// deadline produce a fire time in the past; such jobs are still enqueued and
// the worker fires them immediately rather than skipping them. No
// de-duplication is performed across calls.
//
// All offsets are attempted even if one fails; the joined errors are
// returned for logging.
func (s *Scheduler) Schedule(ctx context.Context, task *domain.Task, recipient string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var errs []error
	for _, offset := range task.Reminders {
		job := Job{
			ID:      uuid.New(),
			TaskID:  task.ID,
			FireAt:  task.Deadline.Add(-time.Duration(offset) * time.Second),
			Payload: BuildPayload(task, recipient),
		}

		enqueueCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout)
		err := s.queue.Enqueue(enqueueCtx, job)
		cancel()

		if err != nil {
			log.Error("failed to enqueue reminder job",
				"task_id", task.ID,
				"offset_seconds", offset,
				"fire_at", job.FireAt,
				"error", err)
			errs = append(errs, fmt.Errorf("offset %d: %w", offset, err))
			continue
		}

		log.Debug("reminder job enqueued",
			"task_id", task.ID,
			"offset_seconds", offset,
			"fire_at", job.FireAt)
	}

	return errors.Join(errs...)
}

// Cancel removes all pending jobs for the given task.
func (s *Scheduler) Cancel(ctx context.Context, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cancelCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout)
	defer cancel()

	removed, err := s.queue.CancelTask(cancelCtx, taskID)
	if err != nil {
		log.Error("failed to cancel reminder jobs",
			"task_id", taskID,
			"error", err)
		return err
	}

	log.Debug("reminder jobs cancelled",
		"task_id", taskID,
		"removed", removed)
	return nil
}

// Reconcile brings the queue in line with an updated task. When neither the
// deadline nor the offset set changed, the existing jobs are still exactly
// the derivable set and nothing happens. Otherwise the previous jobs are
// cancelled so stale reminders cannot fire, and the new derivation is
// scheduled.
func (s *Scheduler) Reconcile(ctx context.Context, previous, updated *domain.Task, recipient string) error {
	if previous != nil &&
		previous.Deadline.Equal(updated.Deadline) &&
		slices.Equal(previous.Reminders, updated.Reminders) {
		return nil
	}

	if err := s.Cancel(ctx, updated.ID); err != nil {
		return err
	}
	return s.Schedule(ctx, updated, recipient)
}

// BuildPayload renders the notification content for a task's reminders.
func BuildPayload(task *domain.Task, recipient string) Payload {
	return Payload{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Reminder: %s", task.Title),
		Body: fmt.Sprintf("Your task %q is due at %s",
			task.Title, task.Deadline.UTC().Format(time.RFC3339)),
	}
}
