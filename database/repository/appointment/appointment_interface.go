package appointmentRepo

import (
	"context"

	"nahio/models"
)

// AppointmentRepository persists appointments and guards the per-slot
// uniqueness of active appointments.
type AppointmentRepository interface {
	// Create assigns ID and timestamps and inserts the appointment. It fails
	// with ErrSlotTaken when an active appointment already holds the slot.
	Create(ctx context.Context, appt *models.Appointment) error
	// GetByID fails with ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// ListByScout returns the scout's appointments in store order.
	ListByScout(ctx context.Context, scoutID string) ([]models.Appointment, error)
	// ListByInstitution returns the institution's appointments in store order.
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Appointment, error)
	// ListActiveBySlot returns the non-cancelled appointments holding the slot.
	ListActiveBySlot(ctx context.Context, slot models.SlotKey) ([]models.Appointment, error)
	// UpdateStatus moves an appointment from one status to another only if it
	// is still in the expected status, returning the updated record. It fails
	// with ErrNotFound or ErrStaleStatus.
	UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error)
}
