package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nahio/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login signs in and returns the ID token plus the loaded session.
func (hb *HandlerBundle) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	res, err := hb.Sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("User logged in", zap.String("userId", res.Credentials.UID))
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"idToken":      res.Credentials.IDToken,
		"refreshToken": res.Credentials.RefreshToken,
		"session":      res.State,
	})
}

func (hb *HandlerBundle) Logout(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := hb.Sessions.Logout(c.Request.Context(), actor.UserID); err != nil {
		respondError(c, err, zap.String("userId", actor.UserID))
		return
	}
	utils.JSONSuccess(c, http.StatusOK, nil)
}

// PasswordReset always answers success for well-formed emails.
func (hb *HandlerBundle) PasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	if err := hb.Accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "If the email is registered, a reset link was sent."})
}
