package models

import (
	"fmt"
	"time"
)

// AppointmentStatus is the lifecycle state of a visit.
//
//	pending → confirmed → completed
//	pending → cancelled
//	confirmed → cancelled
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s AppointmentStatus) IsValid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s AppointmentStatus) IsTerminal() bool {
	return s.IsValid() && len(appointmentTransitions[s]) == 0
}

// HoldsSlot reports whether an appointment in this status occupies its
// (institution, date, time) slot. Completed visits keep the slot.
func (s AppointmentStatus) HoldsSlot() bool {
	return s.IsValid() && s != StatusCancelled
}

// AppointmentAction is a lifecycle command issued against an appointment.
type AppointmentAction string

const (
	ActionConfirm  AppointmentAction = "confirm"
	ActionCancel   AppointmentAction = "cancel"
	ActionComplete AppointmentAction = "complete"
)

// Target returns the status the action moves an appointment to.
func (a AppointmentAction) Target() AppointmentStatus {
	switch a {
	case ActionConfirm:
		return StatusConfirmed
	case ActionCancel:
		return StatusCancelled
	case ActionComplete:
		return StatusCompleted
	}
	return ""
}

// Appointment is a scheduled visit of a scout to an institution.
type Appointment struct {
	ID            string            `bson:"id" json:"id" firestore:"-"`
	ScoutID       string            `bson:"scoutId" json:"scoutId" firestore:"scoutId"`
	InstitutionID string            `bson:"institutionId" json:"institutionId" firestore:"institutionId"`
	VisitDate     time.Time         `bson:"visitDate" json:"visitDate" firestore:"visitDate"` // midnight UTC of the calendar day
	TimeSlot      string            `bson:"timeSlot" json:"timeSlot" firestore:"timeSlot"`    // "HH:MM", 24h
	Notes         string            `bson:"notes,omitempty" json:"notes,omitempty" firestore:"notes,omitempty"`
	Status        AppointmentStatus `bson:"status" json:"status" firestore:"status"`
	CreatedAt     time.Time         `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range appointmentTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Day returns the visit date as YYYY-MM-DD.
func (a *Appointment) Day() string {
	return a.VisitDate.Format(DateLayout)
}

func (a *Appointment) Slot() SlotKey {
	return SlotKey{InstitutionID: a.InstitutionID, Date: a.Day(), TimeSlot: a.TimeSlot}
}

// IsParticipant reports whether the actor is one of the two parties of the visit.
func (a *Appointment) IsParticipant(actor Actor) bool {
	return a.ScoutID == actor.UserID || actor.ActsFor(a.InstitutionID)
}

// DateLayout is the wire and key format of a visit date.
const DateLayout = "2006-01-02"

// DateOnly truncates t to its calendar day, expressed as midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseVisitDate parses a YYYY-MM-DD date.
func ParseVisitDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid visit date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// SlotKey identifies the (institution, date, time) triple that at most one
// non-cancelled appointment may hold.
type SlotKey struct {
	InstitutionID string
	Date          string
	TimeSlot      string
}

func (k SlotKey) String() string {
	return k.InstitutionID + "|" + k.Date + "|" + k.TimeSlot
}

// AppointmentDraft is the input of the creation workflow.
type AppointmentDraft struct {
	ScoutID       string    `json:"scoutId"`
	InstitutionID string    `json:"institutionId"`
	VisitDate     time.Time `json:"visitDate"`
	TimeSlot      string    `json:"timeSlot"`
	Notes         string    `json:"notes,omitempty"`
}

// AppointmentView is an appointment with a snapshot of the counterpart's display name.
type AppointmentView struct {
	Appointment
	InstitutionName string `json:"institutionName,omitempty"`
	ScoutName       string `json:"scoutName,omitempty"`
}

// Availability is the answer of a slot availability check.
type Availability struct {
	Available bool `json:"available"`
}
