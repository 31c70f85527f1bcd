package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nahio/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// slotLock is the document that marks a slot as held. It lives in
// appointmentSlots under the slot key and is removed when the holder is cancelled.
type slotLock struct {
	AppointmentID string    `firestore:"appointmentId"`
	InstitutionID string    `firestore:"institutionId"`
	Date          string    `firestore:"date"`
	TimeSlot      string    `firestore:"timeSlot"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

// FirestoreAppointmentRepo implements AppointmentRepository on Cloud Firestore.
// Create and status changes run in a transaction together with the slot lock.
type FirestoreAppointmentRepo struct {
	client *firestore.Client
	appts  *firestore.CollectionRef
	slots  *firestore.CollectionRef
}

func NewFirestoreAppointmentRepo(client *firestore.Client) *FirestoreAppointmentRepo {
	return &FirestoreAppointmentRepo{
		client: client,
		appts:  client.Collection("appointments"),
		slots:  client.Collection("appointmentSlots"),
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (r *FirestoreAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	ref := r.appts.NewDoc()
	slotRef := r.slots.Doc(appt.Slot().String())

	now := time.Now().UTC()
	record := *appt
	record.ID = ref.ID
	record.CreatedAt = now
	record.UpdatedAt = now

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if record.Status.HoldsSlot() {
			_, err := tx.Get(slotRef)
			switch {
			case err == nil:
				return ErrSlotTaken
			case !isNotFound(err):
				return fmt.Errorf("failed to read slot lock: %w", err)
			}
			if err := tx.Create(slotRef, slotLock{
				AppointmentID: record.ID,
				InstitutionID: record.InstitutionID,
				Date:          record.Day(),
				TimeSlot:      record.TimeSlot,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}
		return tx.Create(ref, record)
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	*appt = record
	return nil
}

func (r *FirestoreAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	snap, err := r.appts.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment with id %s: %w", id, err)
	}
	return decodeAppointment(snap)
}

func (r *FirestoreAppointmentRepo) ListByScout(ctx context.Context, scoutID string) ([]models.Appointment, error) {
	return r.query(ctx, r.appts.Where("scoutId", "==", scoutID))
}

func (r *FirestoreAppointmentRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Appointment, error) {
	return r.query(ctx, r.appts.Where("institutionId", "==", institutionID))
}

// ListActiveBySlot filters out cancelled records client-side to avoid a
// composite inequality index.
func (r *FirestoreAppointmentRepo) ListActiveBySlot(ctx context.Context, slot models.SlotKey) ([]models.Appointment, error) {
	date, err := models.ParseVisitDate(slot.Date)
	if err != nil {
		return nil, err
	}
	all, err := r.query(ctx, r.appts.
		Where("institutionId", "==", slot.InstitutionID).
		Where("visitDate", "==", date).
		Where("timeSlot", "==", slot.TimeSlot))
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, a := range all {
		if a.Status.HoldsSlot() {
			active = append(active, a)
		}
	}
	return active, nil
}

func (r *FirestoreAppointmentRepo) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	ref := r.appts.Doc(id)
	var updated *models.Appointment

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		appt, err := decodeAppointment(snap)
		if err != nil {
			return err
		}
		if appt.Status != from {
			return ErrStaleStatus
		}

		now := time.Now().UTC()
		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: to},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if from.HoldsSlot() && !to.HoldsSlot() {
			if err := tx.Delete(r.slots.Doc(appt.Slot().String())); err != nil {
				return err
			}
		}
		appt.Status = to
		appt.UpdatedAt = now
		updated = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStaleStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update appointment %s: %w", id, err)
	}
	return updated, nil
}

func (r *FirestoreAppointmentRepo) query(ctx context.Context, q firestore.Query) ([]models.Appointment, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	appts := []models.Appointment{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query appointments: %w", err)
		}
		a, err := decodeAppointment(snap)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, nil
}

func decodeAppointment(snap *firestore.DocumentSnapshot) (*models.Appointment, error) {
	var a models.Appointment
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to decode appointment %s: %w", snap.Ref.ID, err)
	}
	a.ID = snap.Ref.ID
	a.VisitDate = a.VisitDate.UTC()
	return &a, nil
}
