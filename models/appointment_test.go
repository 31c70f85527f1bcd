package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointmentTransitions(t *testing.T) {
	cases := []struct {
		from AppointmentStatus
		to   AppointmentStatus
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		a := Appointment{Status: tc.from}
		assert.Equal(t, tc.ok, a.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, AppointmentStatus("bogus").IsValid())

	assert.True(t, StatusPending.HoldsSlot())
	assert.True(t, StatusCompleted.HoldsSlot())
	assert.False(t, StatusCancelled.HoldsSlot())
}

func TestActionTargets(t *testing.T) {
	assert.Equal(t, StatusConfirmed, ActionConfirm.Target())
	assert.Equal(t, StatusCancelled, ActionCancel.Target())
	assert.Equal(t, StatusCompleted, ActionComplete.Target())
	assert.Equal(t, AppointmentStatus(""), AppointmentAction("reopen").Target())
}

func TestSlotKeyAndDates(t *testing.T) {
	date, err := ParseVisitDate("2025-10-20")
	require.NoError(t, err)
	a := Appointment{InstitutionID: "inst", VisitDate: date, TimeSlot: "14:30"}
	assert.Equal(t, "inst|2025-10-20|14:30", a.Slot().String())

	_, err = ParseVisitDate("20/10/2025")
	assert.Error(t, err)

	loc := time.FixedZone("BRT", -3*3600)
	assert.Equal(t, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), DateOnly(time.Date(2025, 10, 20, 23, 30, 0, 0, loc)))
}

func TestParticipantsAndRecipients(t *testing.T) {
	a := Appointment{ScoutID: "s1", InstitutionID: "i1"}

	assert.True(t, a.IsParticipant(Actor{UserID: "s1", UserType: UserTypeScout}))
	assert.True(t, a.IsParticipant(Actor{UserID: "i1", UserType: UserTypeInstitution}))
	assert.True(t, a.IsParticipant(Actor{UserID: "g1", UserType: UserTypeGuardian, InstitutionID: "i1"}))
	assert.False(t, a.IsParticipant(Actor{UserID: "g2", UserType: UserTypeGuardian, InstitutionID: "i2"}))
	assert.False(t, a.IsParticipant(Actor{UserID: "i1", UserType: UserTypeScout}))

	assert.Equal(t, []string{"i1"}, AppointmentEvent{Appointment: a, ActorID: "s1"}.Recipients())
	assert.Equal(t, []string{"s1"}, AppointmentEvent{Appointment: a, ActorID: "g1"}.Recipients())
	assert.Equal(t, []string{"s1", "i1"}, AppointmentEvent{Appointment: a}.Recipients())
}
