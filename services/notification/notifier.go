package notification

import (
	"context"
	"errors"
	"fmt"

	"nahio/models"
)

// Notifier delivers appointment lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event models.AppointmentEvent) error
}

// Multi fans an event out to every notifier, joining their failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event models.AppointmentEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message is the user-facing text of an event.
type Message struct {
	Title string
	Body  string
}

// Render builds the push and inbox text for an event.
func Render(event models.AppointmentEvent) Message {
	a := event.Appointment
	when := fmt.Sprintf("%s às %s", a.VisitDate.Format("02/01/2006"), a.TimeSlot)
	switch event.Type {
	case models.EventAppointmentCreated:
		return Message{Title: "Nova solicitação de visita", Body: "Um olheiro solicitou uma visita para " + when + "."}
	case models.EventAppointmentConfirmed:
		return Message{Title: "Agendamento confirmado", Body: "Sua visita de " + when + " foi confirmada."}
	case models.EventAppointmentCancelled:
		return Message{Title: "Agendamento cancelado", Body: "A visita de " + when + " foi cancelada."}
	case models.EventAppointmentCompleted:
		return Message{Title: "Visita realizada", Body: "A visita de " + when + " foi marcada como realizada."}
	case models.EventAppointmentReminder:
		return Message{Title: "Lembrete de visita", Body: "Você tem uma visita agendada para " + when + "."}
	}
	return Message{Title: "Atualização de agendamento", Body: when}
}

// eventData is the data payload attached to pushes and inbox entries.
func eventData(event models.AppointmentEvent) map[string]string {
	return map[string]string{
		"type":          string(models.NotificationAppointment),
		"event":         string(event.Type),
		"appointmentId": event.Appointment.ID,
		"status":        string(event.Appointment.Status),
	}
}
