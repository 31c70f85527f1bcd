package appointmentRepo

import (
	"context"

	"nahio/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (r *MongoAppointmentRepo) ListByScout(ctx context.Context, scoutID string) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"scoutId": scoutID})
}

func (r *MongoAppointmentRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"institutionId": institutionID})
}

// ListActiveBySlot reads through the same slotHeld flag the unique index uses.
func (r *MongoAppointmentRepo) ListActiveBySlot(ctx context.Context, slot models.SlotKey) ([]models.Appointment, error) {
	date, err := models.ParseVisitDate(slot.Date)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{
		"institutionId": slot.InstitutionID,
		"visitDate":     date,
		"timeSlot":      slot.TimeSlot,
		"slotHeld":      true,
	})
}
