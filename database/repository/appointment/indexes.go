package appointmentRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the appointments collection.
func (r *MongoAppointmentRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// At most one active appointment per slot.
		{
			Keys: bson.D{
				{Key: "institutionId", Value: 1},
				{Key: "visitDate", Value: 1},
				{Key: "timeSlot", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"slotHeld": true}).
				SetName("active_slot_unique"),
		},
		{
			Keys:    bson.D{{Key: "scoutId", Value: 1}, {Key: "visitDate", Value: -1}},
			Options: options.Index().SetName("scout_visit_idx"),
		},
		{
			Keys:    bson.D{{Key: "institutionId", Value: 1}, {Key: "visitDate", Value: -1}},
			Options: options.Index().SetName("institution_visit_idx"),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create appointment indexes: %w", err)
	}
	return nil
}

// Migrate satisfies the migrate command's schema hook.
func (r *MongoAppointmentRepo) Migrate(ctx context.Context) error {
	return r.EnsureIndexes(ctx)
}
