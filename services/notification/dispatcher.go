package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentRepo "nahio/database/repository/appointment"
	"nahio/models"
	"nahio/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AppointmentReader loads the current state of an appointment.
type AppointmentReader interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
}

// Dispatcher handles the worker tasks: it delivers queued events through the
// inline notifiers and turns due reminders into reminder events.
type Dispatcher struct {
	Deliver      Notifier
	Appointments AppointmentReader
	Logger       *zap.Logger
	Now          func() time.Time
}

// HandleDispatch delivers one queued event. Failures are retried by asynq.
func (d *Dispatcher) HandleDispatch(ctx context.Context, task *asynq.Task) error {
	event, err := tasks.DecodeDispatch(task)
	if err != nil {
		d.Logger.Error("invalid dispatch payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := d.Deliver.Notify(ctx, event); err != nil {
		d.Logger.Warn("notification delivery failed",
			zap.String("eventId", event.ID),
			zap.String("appointmentId", event.Appointment.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// HandleReminder sends the visit reminder if the appointment is still confirmed.
func (d *Dispatcher) HandleReminder(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.DecodeReminder(task)
	if err != nil {
		d.Logger.Error("invalid reminder payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	appt, err := d.Appointments.GetByID(ctx, p.AppointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			d.Logger.Warn("reminder for unknown appointment", zap.String("appointmentId", p.AppointmentID))
			return nil
		}
		return err
	}
	if appt.Status != models.StatusConfirmed {
		d.Logger.Debug("reminder skipped",
			zap.String("appointmentId", appt.ID),
			zap.String("status", string(appt.Status)),
		)
		return nil
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return d.Deliver.Notify(ctx, models.AppointmentEvent{
		ID:          "reminder:" + appt.ID,
		Type:        models.EventAppointmentReminder,
		Appointment: *appt,
		OccurredAt:  now().UTC(),
	})
}
