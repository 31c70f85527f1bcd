package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nahio/models"
	"nahio/utils"
)

type createAppointmentRequest struct {
	InstitutionID string `json:"institutionId"`
	VisitDate     string `json:"visitDate"` // YYYY-MM-DD
	TimeSlot      string `json:"timeSlot"`
	Notes         string `json:"notes"`
}

func parseOptionalDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return models.ParseVisitDate(raw)
}

// ListAppointments lists the caller's appointments: a scout's own visits, or
// the visits to the institution the caller speaks for.
func (hb *HandlerBundle) ListAppointments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var (
		views []models.AppointmentView
		err   error
	)
	switch actor.UserType {
	case models.UserTypeScout:
		views, err = hb.Appointments.ListForScout(c.Request.Context(), actor.UserID)
	case models.UserTypeInstitution:
		views, err = hb.Appointments.ListForInstitution(c.Request.Context(), actor.UserID)
	case models.UserTypeGuardian:
		views, err = hb.Appointments.ListForInstitution(c.Request.Context(), actor.InstitutionID)
	default:
		utils.JSONError(c, http.StatusForbidden, "forbidden", "Unknown account type")
		return
	}
	if err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"appointments": views})
}

func (hb *HandlerBundle) CheckAvailability(c *gin.Context) {
	visitDate, err := parseOptionalDate(c.Query("visitDate"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := hb.Appointments.CheckAvailability(c.Request.Context(), c.Query("institutionId"), visitDate, c.Query("timeSlot"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"available": res.Available})
}

func (hb *HandlerBundle) CreateAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid appointment payload")
		return
	}
	visitDate, err := parseOptionalDate(req.VisitDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	appt, err := hb.Appointments.Create(c.Request.Context(), actor, models.AppointmentDraft{
		ScoutID:       actor.UserID,
		InstitutionID: req.InstitutionID,
		VisitDate:     visitDate,
		TimeSlot:      req.TimeSlot,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	getLogger(c).Info("Appointment created", zap.String("appointmentId", appt.ID), zap.String("userId", actor.UserID))
	utils.JSONSuccess(c, http.StatusCreated, gin.H{"appointmentId": appt.ID, "appointment": appt})
}

func (hb *HandlerBundle) GetAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	view, err := hb.Appointments.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, zap.String("appointmentId", c.Param("id")))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"appointment": view})
}

func (hb *HandlerBundle) ConfirmAppointment(c *gin.Context) {
	hb.transition(c, models.ActionConfirm)
}

func (hb *HandlerBundle) CancelAppointment(c *gin.Context) {
	hb.transition(c, models.ActionCancel)
}

func (hb *HandlerBundle) CompleteAppointment(c *gin.Context) {
	hb.transition(c, models.ActionComplete)
}

func (hb *HandlerBundle) transition(c *gin.Context, action models.AppointmentAction) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var (
		appt *models.Appointment
		err  error
	)
	switch action {
	case models.ActionConfirm:
		appt, err = hb.Appointments.Confirm(c.Request.Context(), actor, id)
	case models.ActionCancel:
		appt, err = hb.Appointments.Cancel(c.Request.Context(), actor, id)
	case models.ActionComplete:
		appt, err = hb.Appointments.Complete(c.Request.Context(), actor, id)
	}
	if err != nil {
		respondError(c, err, zap.String("appointmentId", id), zap.String("userId", actor.UserID))
		return
	}
	getLogger(c).Info("Appointment status changed",
		zap.String("appointmentId", id), zap.String("status", string(appt.Status)), zap.String("userId", actor.UserID))
	utils.JSONSuccess(c, http.StatusOK, gin.H{"appointment": appt})
}
