package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nahio/models"
	"nahio/services/session"
	"nahio/utils"
)

const (
	actorKey   = "actor"
	sessionKey = "session"
)

// Authenticator resolves bearer ID tokens to sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, idToken string) (*session.State, error)
}

// SessionAuth requires a bearer ID token with an authenticated session and
// stores the caller's actor and session state on the context.
func SessionAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if !strings.HasPrefix(header, "Bearer ") || token == "" {
			utils.JSONError(c, http.StatusUnauthorized, "unauthenticated", "Missing bearer token")
			return
		}

		st, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrProfileUnavailable) {
				utils.GetLogger().Warn("Session closed on profile failure", zap.Error(err))
			}
			utils.JSONError(c, http.StatusUnauthorized, "unauthenticated", "Insufficient authorization")
			return
		}

		c.Set(actorKey, st.Actor())
		c.Set(sessionKey, st)
		c.Next()
	}
}

// CurrentActor returns the actor stored by SessionAuth.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok && actor.UserID != ""
}

// CurrentSession returns the session state stored by SessionAuth.
func CurrentSession(c *gin.Context) (*session.State, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	st, ok := v.(*session.State)
	return st, ok
}
