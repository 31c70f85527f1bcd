package tasks

import (
	"encoding/json"
	"time"

	"nahio/models"

	"github.com/hibiken/asynq"
)

const (
	TypeDispatchNotification = "notification:dispatch"
	TypeSendReminder         = "reminder:send"
)

// NewDispatchTask wraps an appointment event for asynchronous fan-out.
func NewDispatchTask(event models.AppointmentEvent) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeDispatchNotification, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
		asynq.TaskID("dispatch:" + event.ID),
	}
	return task, opts, nil
}

// NewReminderTask schedules a visit reminder at fireAt. The task id is keyed
// by appointment so a visit gets at most one reminder.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(3),
		asynq.TaskID("reminder:" + payload.AppointmentID),
	}
	return task, opts, nil
}

// DecodeDispatch reads the event carried by a dispatch task.
func DecodeDispatch(task *asynq.Task) (models.AppointmentEvent, error) {
	var event models.AppointmentEvent
	err := json.Unmarshal(task.Payload(), &event)
	return event, err
}

// DecodeReminder reads the payload carried by a reminder task.
func DecodeReminder(task *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
