package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nahio/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new appointment document; the unique partial index on the
// slot rejects a second active appointment.
func (r *MongoAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	appt.ID = uuid.NewString()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	doc := appointmentDoc{Appointment: *appt, SlotHeld: appt.Status.HoldsSlot()}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID retrieves an appointment by its unique ID.
func (r *MongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var appt models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment with id %s: %w", id, err)
	}
	return &appt, nil
}

// UpdateStatus performs a compare-and-swap on the status field.
func (r *MongoAppointmentRepo) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":    to,
		"slotHeld":  to.HoldsSlot(),
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var appt models.Appointment
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&appt)
	if err == nil {
		return &appt, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update appointment %s: %w", id, err)
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to check appointment %s: %w", id, err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrStaleStatus
}
