package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nahio/models"
	"nahio/services/account"
	"nahio/utils"
)

func (hb *HandlerBundle) RegisterScout(c *gin.Context) {
	var req account.ScoutRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid registration payload")
		return
	}
	res, err := hb.Accounts.RegisterScout(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{"userId": res.UserID})
}

// RegisterInstitution creates the institution and its guardian in one request.
func (hb *HandlerBundle) RegisterInstitution(c *gin.Context) {
	var req account.InstitutionRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid registration payload")
		return
	}
	res, err := hb.Accounts.RegisterInstitution(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{"userId": res.UserID, "guardianId": res.GuardianID})
}

func (hb *HandlerBundle) GetMe(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	data, err := hb.Accounts.GetUserData(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"user": data})
}

// UpdateMe merges the patch into the caller's profile and refreshes the session.
func (hb *HandlerBundle) UpdateMe(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "invalid profile payload")
		return
	}
	data, err := hb.Accounts.UpdateProfile(c.Request.Context(), actor, update)
	if err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	if _, err := hb.Sessions.Refresh(c.Request.Context(), actor.UserID); err != nil {
		getLogger(c).Warn("Session refresh after profile update failed", zap.String("userId", actor.UserID), zap.Error(err))
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"user": data})
}

func (hb *HandlerBundle) RegisterDevice(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}
	if err := hb.Accounts.RegisterDevice(c.Request.Context(), actor.UserID, req.Token); err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, nil)
}

func (hb *HandlerBundle) LookupAddress(c *gin.Context) {
	addr, err := hb.Address.Lookup(c.Request.Context(), c.Param("cep"))
	if err != nil {
		respondError(c, err, zap.String("cep", c.Param("cep")))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"address": addr})
}

func (hb *HandlerBundle) ListInstitutions(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	list, err := hb.Invitations.EligibleInstitutions(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"institutions": list})
}
