package models

import "time"

// NotificationType groups inbox entries for the client's icon and navigation.
type NotificationType string

const (
	NotificationAppointment NotificationType = "agendamento"
	NotificationInvitation  NotificationType = "convite"
	NotificationSystem      NotificationType = "sistema"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

// AppointmentEventType names a lifecycle transition worth telling the participants about.
type AppointmentEventType string

const (
	EventAppointmentCreated   AppointmentEventType = "appointment.created"
	EventAppointmentConfirmed AppointmentEventType = "appointment.confirmed"
	EventAppointmentCancelled AppointmentEventType = "appointment.cancelled"
	EventAppointmentCompleted AppointmentEventType = "appointment.completed"
	EventAppointmentReminder  AppointmentEventType = "appointment.reminder"
)

// AppointmentEvent is handed to the notifier after a successful transition.
type AppointmentEvent struct {
	ID          string               `json:"id"`
	Type        AppointmentEventType `json:"type"`
	Appointment Appointment          `json:"appointment"`
	ActorID     string               `json:"actorId,omitempty"`
	OccurredAt  time.Time            `json:"occurredAt"`
}

// Recipients returns the participants that should hear about the event: the
// counterpart of the actor, or both parties when the system is the actor.
func (e AppointmentEvent) Recipients() []string {
	switch e.ActorID {
	case "":
		return []string{e.Appointment.ScoutID, e.Appointment.InstitutionID}
	case e.Appointment.ScoutID:
		return []string{e.Appointment.InstitutionID}
	default:
		return []string{e.Appointment.ScoutID}
	}
}

// ReminderPayload is the body of a delayed visit reminder task.
type ReminderPayload struct {
	AppointmentID string `json:"appointmentId"`
	FireDate      string `json:"fireDate"`
}
