package appointmentRepo

import (
	"context"
	"sync"
	"time"

	"nahio/models"

	"github.com/google/uuid"
)

// MemoryAppointmentRepo keeps appointments in process memory. Insertion order
// is the store order.
type MemoryAppointmentRepo struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]models.Appointment
	slots map[string]string // slot key -> holding appointment id
	now   func() time.Time
}

func NewMemoryAppointmentRepo() *MemoryAppointmentRepo {
	return &MemoryAppointmentRepo{
		byID:  make(map[string]models.Appointment),
		slots: make(map[string]string),
		now:   time.Now,
	}
}

func (r *MemoryAppointmentRepo) Create(_ context.Context, appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := appt.Slot().String()
	if appt.Status.HoldsSlot() {
		if _, taken := r.slots[key]; taken {
			return ErrSlotTaken
		}
	}

	now := r.now().UTC()
	appt.ID = uuid.NewString()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	r.byID[appt.ID] = *appt
	r.order = append(r.order, appt.ID)
	if appt.Status.HoldsSlot() {
		r.slots[key] = appt.ID
	}
	return nil
}

func (r *MemoryAppointmentRepo) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &appt, nil
}

func (r *MemoryAppointmentRepo) ListByScout(_ context.Context, scoutID string) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool { return a.ScoutID == scoutID }), nil
}

func (r *MemoryAppointmentRepo) ListByInstitution(_ context.Context, institutionID string) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool { return a.InstitutionID == institutionID }), nil
}

func (r *MemoryAppointmentRepo) ListActiveBySlot(_ context.Context, slot models.SlotKey) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool {
		return a.Status.HoldsSlot() && a.Slot() == slot
	}), nil
}

func (r *MemoryAppointmentRepo) UpdateStatus(_ context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if appt.Status != from {
		return nil, ErrStaleStatus
	}
	appt.Status = to
	appt.UpdatedAt = r.now().UTC()
	r.byID[id] = appt

	key := appt.Slot().String()
	if !to.HoldsSlot() && r.slots[key] == id {
		delete(r.slots, key)
	}
	return &appt, nil
}

func (r *MemoryAppointmentRepo) filter(keep func(models.Appointment) bool) []models.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Appointment{}
	for _, id := range r.order {
		if a := r.byID[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}
