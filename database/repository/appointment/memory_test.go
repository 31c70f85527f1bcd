package appointmentRepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nahio/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAppt(inst, day, slot string) *models.Appointment {
	date, _ := models.ParseVisitDate(day)
	return &models.Appointment{
		ScoutID:       "scout-1",
		InstitutionID: inst,
		VisitDate:     date,
		TimeSlot:      slot,
		Status:        models.StatusPending,
	}
}

func TestMemoryCreateAssignsIdentity(t *testing.T) {
	repo := NewMemoryAppointmentRepo()
	appt := newAppt("inst-1", "2025-10-20", "14:30")

	require.NoError(t, repo.Create(context.Background(), appt))
	assert.NotEmpty(t, appt.ID)
	assert.False(t, appt.CreatedAt.IsZero())
	assert.Equal(t, appt.CreatedAt, appt.UpdatedAt)

	got, err := repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, *appt, *got)
}

func TestMemoryGetUnknown(t *testing.T) {
	_, err := NewMemoryAppointmentRepo().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySlotIsReleasedByCancel(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAppointmentRepo()

	first := newAppt("inst-1", "2025-10-20", "14:30")
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, newAppt("inst-1", "2025-10-20", "14:30")), ErrSlotTaken)

	// A different time or institution is a different slot.
	require.NoError(t, repo.Create(ctx, newAppt("inst-1", "2025-10-20", "15:30")))
	require.NoError(t, repo.Create(ctx, newAppt("inst-2", "2025-10-20", "14:30")))

	_, err := repo.UpdateStatus(ctx, first.ID, models.StatusPending, models.StatusCancelled)
	require.NoError(t, err)

	active, err := repo.ListActiveBySlot(ctx, first.Slot())
	require.NoError(t, err)
	assert.Empty(t, active)
	require.NoError(t, repo.Create(ctx, newAppt("inst-1", "2025-10-20", "14:30")))
}

func TestMemoryCompletedKeepsSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAppointmentRepo()

	appt := newAppt("inst-1", "2025-10-20", "09:00")
	require.NoError(t, repo.Create(ctx, appt))
	_, err := repo.UpdateStatus(ctx, appt.ID, models.StatusPending, models.StatusConfirmed)
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, appt.ID, models.StatusConfirmed, models.StatusCompleted)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Create(ctx, newAppt("inst-1", "2025-10-20", "09:00")), ErrSlotTaken)
}

func TestMemoryUpdateStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAppointmentRepo()
	repo.now = func() time.Time { return time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC) }

	appt := newAppt("inst-1", "2025-10-20", "09:00")
	require.NoError(t, repo.Create(ctx, appt))

	_, err := repo.UpdateStatus(ctx, appt.ID, models.StatusConfirmed, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrStaleStatus)

	repo.now = func() time.Time { return time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC) }
	updated, err := repo.UpdateStatus(ctx, appt.ID, models.StatusPending, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = repo.UpdateStatus(ctx, "missing", models.StatusPending, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAppointmentRepo()
	a := newAppt("inst-1", "2025-01-01", "09:00")
	b := newAppt("inst-2", "2025-06-01", "09:00")
	c := newAppt("inst-1", "2025-03-01", "09:00")
	c.ScoutID = "scout-2"
	for _, appt := range []*models.Appointment{a, b, c} {
		require.NoError(t, repo.Create(ctx, appt))
	}

	byScout, err := repo.ListByScout(ctx, "scout-1")
	require.NoError(t, err)
	require.Len(t, byScout, 2)
	assert.Equal(t, a.ID, byScout[0].ID)
	assert.Equal(t, b.ID, byScout[1].ID)

	byInst, err := repo.ListByInstitution(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, byInst, 2)
	assert.Equal(t, c.ID, byInst[1].ID)

	none, err := repo.ListByScout(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAppointmentRepo()

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(ctx, newAppt("inst-1", "2025-10-20", "14:30"))
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotTaken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)

	active, err := repo.ListActiveBySlot(ctx, models.SlotKey{InstitutionID: "inst-1", Date: "2025-10-20", TimeSlot: "14:30"})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
