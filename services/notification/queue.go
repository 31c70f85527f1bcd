package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nahio/models"
	"nahio/services/tasks"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands events to the worker instead of delivering inline.
type QueueNotifier struct {
	Queue Enqueuer
}

func (q *QueueNotifier) Notify(ctx context.Context, event models.AppointmentEvent) error {
	task, opts, err := tasks.NewDispatchTask(event)
	if err != nil {
		return fmt.Errorf("queue: failed to build dispatch task: %w", err)
	}
	if _, err := q.Queue.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("queue: failed to enqueue %s: %w", event.Type, err)
	}
	return nil
}

// ReminderQueue schedules visit reminders as delayed tasks.
type ReminderQueue struct {
	Queue Enqueuer
}

func (q *ReminderQueue) ScheduleReminder(ctx context.Context, appt models.Appointment, at time.Time) error {
	payload := models.ReminderPayload{
		AppointmentID: appt.ID,
		FireDate:      at.UTC().Format(time.RFC3339),
	}
	task, opts, err := tasks.NewReminderTask(payload, at)
	if err != nil {
		return fmt.Errorf("queue: failed to build reminder task: %w", err)
	}
	if _, err := q.Queue.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("queue: failed to schedule reminder for %s: %w", appt.ID, err)
	}
	return nil
}
