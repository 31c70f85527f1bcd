package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nahio/models"
	"nahio/utils"
)

// inboxOwner is the inbox a caller reads: guardians share their institution's.
func inboxOwner(actor models.Actor) string {
	if actor.UserType == models.UserTypeGuardian && actor.InstitutionID != "" {
		return actor.InstitutionID
	}
	return actor.UserID
}

// ListNotifications returns the caller's inbox, newest first.
func (hb *HandlerBundle) ListNotifications(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	list, err := hb.Inbox.List(c.Request.Context(), inboxOwner(actor))
	if err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (hb *HandlerBundle) MarkNotificationRead(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := hb.Inbox.MarkRead(c.Request.Context(), inboxOwner(actor), c.Param("id")); err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, nil)
}
