package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	appointmentRepo "nahio/database/repository/appointment"
	profileRepo "nahio/database/repository/profile"
	"nahio/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("nahio/services/appointment")

// Directory resolves participant display names. InstitutionName fails with
// profileRepo.ErrNotFound for unknown institutions.
type Directory interface {
	InstitutionName(ctx context.Context, institutionID string) (string, error)
	ScoutName(ctx context.Context, scoutID string) (string, error)
}

// Notifier receives lifecycle events after successful transitions.
type Notifier interface {
	Notify(ctx context.Context, event models.AppointmentEvent) error
}

// ReminderScheduler arranges a reminder for a confirmed visit.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, appt models.Appointment, at time.Time) error
}

// Service runs the appointment workflow: listing, availability, creation and
// the confirm/cancel/complete lifecycle. Notifier and Reminders are optional.
type Service struct {
	Repo             appointmentRepo.AppointmentRepository
	Directory        Directory
	Notifier         Notifier
	Reminders        ReminderScheduler
	Logger           *zap.Logger
	Location         *time.Location
	ReminderLeadTime time.Duration
	Now              func() time.Time
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// today is the current calendar day in the service's timezone, as midnight UTC.
func (s *Service) today() time.Time {
	return models.DateOnly(s.now().In(s.location()))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CodeOf(err)))
	}
	span.End()
}

// ListForScout returns the scout's appointments, most recent visit first, each
// carrying the institution's display name.
func (s *Service) ListForScout(ctx context.Context, scoutID string) (views []models.AppointmentView, err error) {
	ctx, span := tracer.Start(ctx, "appointment.ListForScout", trace.WithAttributes(attribute.String("scout.id", scoutID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(scoutID) == "" {
		return nil, validationError("scoutId is required")
	}
	appts, err := s.Repo.ListByScout(ctx, scoutID)
	if err != nil {
		return nil, queryError("failed to list appointments", err)
	}
	return s.withNames(ctx, appts, true, false), nil
}

// ListForInstitution returns the institution's appointments, most recent visit
// first, each carrying the scout's display name.
func (s *Service) ListForInstitution(ctx context.Context, institutionID string) (views []models.AppointmentView, err error) {
	ctx, span := tracer.Start(ctx, "appointment.ListForInstitution", trace.WithAttributes(attribute.String("institution.id", institutionID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(institutionID) == "" {
		return nil, validationError("institutionId is required")
	}
	appts, err := s.Repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, queryError("failed to list appointments", err)
	}
	return s.withNames(ctx, appts, false, true), nil
}

// withNames sorts by visit date descending, keeping store order among equal
// dates, and attaches the requested display names.
func (s *Service) withNames(ctx context.Context, appts []models.Appointment, institution, scout bool) []models.AppointmentView {
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].VisitDate.After(appts[j].VisitDate)
	})

	instNames := map[string]string{}
	scoutNames := map[string]string{}
	views := make([]models.AppointmentView, 0, len(appts))
	for _, a := range appts {
		v := models.AppointmentView{Appointment: a}
		if institution {
			v.InstitutionName = s.lookup(ctx, instNames, a.InstitutionID, s.Directory.InstitutionName)
		}
		if scout {
			v.ScoutName = s.lookup(ctx, scoutNames, a.ScoutID, s.Directory.ScoutName)
		}
		views = append(views, v)
	}
	return views
}

// lookup is best-effort: failures are logged and yield an empty name.
func (s *Service) lookup(ctx context.Context, seen map[string]string, id string, fetch func(context.Context, string) (string, error)) string {
	if name, ok := seen[id]; ok {
		return name
	}
	name, err := fetch(ctx, id)
	if err != nil {
		s.logger().Warn("display name lookup failed", zap.String("id", id), zap.Error(err))
		name = ""
	}
	seen[id] = name
	return name
}

// Get returns one appointment to one of its participants.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (view *models.AppointmentView, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Get", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParticipant(actor) {
		return nil, forbiddenError("not a participant of this appointment")
	}
	views := s.withNames(ctx, []models.Appointment{*appt}, true, true)
	return &views[0], nil
}

// CheckAvailability reports whether no active appointment holds the slot.
// A failed check is an error, never "available".
func (s *Service) CheckAvailability(ctx context.Context, institutionID string, visitDate time.Time, timeSlot string) (res models.Availability, err error) {
	ctx, span := tracer.Start(ctx, "appointment.CheckAvailability")
	defer func() { endSpan(span, err) }()

	institutionID = strings.TrimSpace(institutionID)
	timeSlot = strings.TrimSpace(timeSlot)
	if err := validateSlot(institutionID, visitDate, timeSlot); err != nil {
		return models.Availability{}, err
	}
	slot := models.SlotKey{
		InstitutionID: institutionID,
		Date:          models.DateOnly(visitDate).Format(models.DateLayout),
		TimeSlot:      timeSlot,
	}
	span.SetAttributes(attribute.String("appointment.slot", slot.String()))

	active, err := s.Repo.ListActiveBySlot(ctx, slot)
	if err != nil {
		return models.Availability{}, queryError("failed to check availability", err)
	}
	return models.Availability{Available: len(active) == 0}, nil
}

// Create books a pending visit for the calling scout. The store's conditional
// insert rejects a slot taken between the availability check and the write.
func (s *Service) Create(ctx context.Context, actor models.Actor, draft models.AppointmentDraft) (appt *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Create", trace.WithAttributes(attribute.String("actor.id", actor.UserID)))
	defer func() { endSpan(span, err) }()

	if actor.UserType != models.UserTypeScout {
		return nil, forbiddenError("only scouts can schedule visits")
	}
	if strings.TrimSpace(draft.ScoutID) == "" {
		draft.ScoutID = actor.UserID
	}
	draft, err = normalizeDraft(draft, s.today())
	if err != nil {
		return nil, err
	}
	if draft.ScoutID != actor.UserID {
		return nil, forbiddenError("scouts can only schedule visits for themselves")
	}

	if _, err := s.Directory.InstitutionName(ctx, draft.InstitutionID); err != nil {
		if errors.Is(err, profileRepo.ErrNotFound) {
			return nil, validationError("institution not found")
		}
		return nil, queryError("failed to load institution", err)
	}

	avail, err := s.CheckAvailability(ctx, draft.InstitutionID, draft.VisitDate, draft.TimeSlot)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, &Error{Code: CodeConflict, Message: "time slot unavailable, choose another time"}
	}

	appt = &models.Appointment{
		ScoutID:       draft.ScoutID,
		InstitutionID: draft.InstitutionID,
		VisitDate:     draft.VisitDate,
		TimeSlot:      draft.TimeSlot,
		Notes:         draft.Notes,
		Status:        models.StatusPending,
	}
	if err := s.Repo.Create(ctx, appt); err != nil {
		if errors.Is(err, appointmentRepo.ErrSlotTaken) {
			return nil, &Error{Code: CodeConflict, Message: "time slot unavailable, choose another time", Err: err}
		}
		return nil, queryError("failed to create appointment", err)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	s.notify(ctx, models.EventAppointmentCreated, *appt, actor.UserID)
	return appt, nil
}

// Confirm moves a pending appointment to confirmed. Institution side only.
func (s *Service) Confirm(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.ActionConfirm)
}

// Cancel moves a pending or confirmed appointment to cancelled, releasing its slot.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.ActionCancel)
}

// Complete moves a confirmed appointment to completed. Institution side only.
func (s *Service) Complete(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.ActionComplete)
}

var actionEvents = map[models.AppointmentAction]models.AppointmentEventType{
	models.ActionConfirm:  models.EventAppointmentConfirmed,
	models.ActionCancel:   models.EventAppointmentCancelled,
	models.ActionComplete: models.EventAppointmentCompleted,
}

func (s *Service) transition(ctx context.Context, actor models.Actor, id string, action models.AppointmentAction) (updated *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment."+string(action), trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.String("actor.id", actor.UserID),
	))
	defer func() { endSpan(span, err) }()

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParticipant(actor) {
		return nil, forbiddenError("not a participant of this appointment")
	}
	if action != models.ActionCancel && !actor.ActsFor(appt.InstitutionID) {
		return nil, forbiddenError(fmt.Sprintf("only the institution can %s a visit", action))
	}

	target := action.Target()
	if !appt.CanTransitionTo(target) {
		return nil, &Error{
			Code:    CodeInvalidState,
			Message: fmt.Sprintf("cannot %s a %s appointment", action, appt.Status),
		}
	}

	updated, err = s.Repo.UpdateStatus(ctx, id, appt.Status, target)
	if err != nil {
		switch {
		case errors.Is(err, appointmentRepo.ErrStaleStatus):
			return nil, &Error{Code: CodeInvalidState, Message: "appointment changed concurrently, reload and retry", Err: err}
		case errors.Is(err, appointmentRepo.ErrNotFound):
			return nil, &Error{Code: CodeNotFound, Message: "appointment not found", Err: err}
		}
		return nil, queryError("failed to update appointment", err)
	}

	s.notify(ctx, actionEvents[action], *updated, actor.UserID)
	if action == models.ActionConfirm {
		s.scheduleReminder(ctx, *updated)
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("appointment id is required")
	}
	appt, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: "appointment not found", Err: err}
		}
		return nil, queryError("failed to load appointment", err)
	}
	return appt, nil
}

// notify is best-effort: delivery failures never fail the transition.
func (s *Service) notify(ctx context.Context, typ models.AppointmentEventType, appt models.Appointment, actorID string) {
	if s.Notifier == nil {
		return
	}
	event := models.AppointmentEvent{
		ID:          uuid.NewString(),
		Type:        typ,
		Appointment: appt,
		ActorID:     actorID,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.Notifier.Notify(ctx, event); err != nil {
		s.logger().Warn("appointment notification failed",
			zap.String("appointmentId", appt.ID),
			zap.String("event", string(typ)),
			zap.Error(err),
		)
	}
}

// VisitStart is the wall-clock start of the visit in the service's timezone.
func (s *Service) VisitStart(appt models.Appointment) time.Time {
	clock, _ := time.Parse("15:04", appt.TimeSlot)
	y, m, d := appt.VisitDate.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, s.location())
}

// scheduleReminder fires ReminderLeadTime before the visit, or immediately
// when the lead window has already begun. Past visits get no reminder.
func (s *Service) scheduleReminder(ctx context.Context, appt models.Appointment) {
	if s.Reminders == nil || s.ReminderLeadTime <= 0 {
		return
	}
	now := s.now()
	start := s.VisitStart(appt)
	if !start.After(now) {
		return
	}
	at := start.Add(-s.ReminderLeadTime)
	if at.Before(now) {
		at = now
	}
	if err := s.Reminders.ScheduleReminder(ctx, appt, at); err != nil {
		s.logger().Warn("failed to schedule visit reminder",
			zap.String("appointmentId", appt.ID),
			zap.Time("at", at),
			zap.Error(err),
		)
	}
}
