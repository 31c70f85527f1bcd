package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	profileRepo "nahio/database/repository/profile"
	"nahio/middleware"
	"nahio/models"
	"nahio/services/account"
	"nahio/services/address"
	"nahio/services/appointment"
	"nahio/services/identity"
	"nahio/services/invitation"
	"nahio/services/notification"
	"nahio/services/session"
	"nahio/utils"
)

var appointmentStatus = map[appointment.Code]int{
	appointment.CodeValidation:   http.StatusBadRequest,
	appointment.CodeForbidden:    http.StatusForbidden,
	appointment.CodeNotFound:     http.StatusNotFound,
	appointment.CodeConflict:     http.StatusConflict,
	appointment.CodeInvalidState: http.StatusConflict,
	appointment.CodeQuery:        http.StatusBadGateway,
}

// classify maps a service error to an HTTP status, envelope code and client message.
func classify(err error) (int, string, string) {
	var apptErr *appointment.Error
	var validationErr *account.ValidationError
	switch {
	case errors.As(err, &apptErr):
		status, ok := appointmentStatus[apptErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, string(apptErr.Code), apptErr.Message
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation", validationErr.Error()
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"
	case errors.Is(err, session.ErrProfileUnavailable):
		return http.StatusUnauthorized, "profile_unavailable", "Your profile could not be loaded. Please sign in again."
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized, "unauthenticated", "Not authenticated"
	case errors.Is(err, identity.ErrEmailExists):
		return http.StatusConflict, "conflict", "Email already registered"
	case errors.Is(err, profileRepo.ErrNotFound):
		return http.StatusNotFound, "not_found", "Profile not found"
	case errors.Is(err, invitation.ErrNotScout):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, address.ErrInvalidCEP):
		return http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, address.ErrNotFound):
		return http.StatusNotFound, "not_found", "CEP not found"
	case errors.Is(err, notification.ErrNotificationNotFound):
		return http.StatusNotFound, "not_found", "Notification not found"
	}
	return http.StatusInternalServerError, "internal", "An unexpected error occurred. Please try again later."
}

func respondError(c *gin.Context, err error, fields ...zap.Field) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		getLogger(c).Error("Request failed", append(fields, zap.Error(err))...)
	}
	utils.JSONError(c, status, code, message)
}

func badRequest(c *gin.Context, message string) {
	utils.JSONError(c, http.StatusBadRequest, "validation", message)
}

// actorOrAbort returns the authenticated actor or answers 401.
func actorOrAbort(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated")
	}
	return actor, ok
}
