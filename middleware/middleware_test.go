package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nahio/models"
	"nahio/services/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth map[string]*session.State

func (s stubAuth) Authenticate(_ context.Context, token string) (*session.State, error) {
	if st, ok := s[token]; ok {
		return st, nil
	}
	return nil, errors.New("invalid token")
}

func TestSessionAuth(t *testing.T) {
	auth := stubAuth{"good": {
		User:          &models.User{ID: "g1", UserType: models.UserTypeGuardian},
		Profile:       &models.Profile{Guardian: &models.GuardianProfile{ID: "g1", InstitutionID: "inst-1"}},
		Authenticated: true,
	}}
	r := gin.New()
	r.GET("/me", SessionAuth(auth), func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		assert.True(t, ok)
		c.JSON(http.StatusOK, actor)
	})

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer forged", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.header)
		if tc.status == http.StatusOK {
			assert.JSONEq(t, `{"UserID":"g1","UserType":"responsavel","InstitutionID":"inst-1"}`, w.Body.String())
		} else {
			assert.Contains(t, w.Body.String(), `"code":"unauthenticated"`)
		}
	}
}

func rateLimitedEngine(t *testing.T, perMin int, trusted []string) *gin.Engine {
	t.Helper()
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(trusted))
	r.Use(RateLimitMiddleware(perMin))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func hit(r *gin.Engine, remote string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware(t *testing.T) {
	r := rateLimitedEngine(t, 2, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, hit(r, "203.0.113.7:4000", nil))
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	assert.Equal(t, http.StatusNoContent, hit(r, "198.51.100.1:4000", nil), "limits are per client")
}

func TestRateLimitIgnoresUntrustedForwardingHeaders(t *testing.T) {
	r := rateLimitedEngine(t, 2, nil)

	codes := make([]int, 0, 3)
	for i, spoofed := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		headers := map[string]string{"X-Forwarded-For": spoofed}
		if i == 2 {
			headers = map[string]string{"X-Real-IP": spoofed}
		}
		codes = append(codes, hit(r, "203.0.113.7:4000", headers))
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes,
		"rotating headers does not earn a fresh bucket")
}

func TestRateLimitHonorsTrustedProxy(t *testing.T) {
	r := rateLimitedEngine(t, 1, []string{"10.1.0.0/16"})

	assert.Equal(t, http.StatusNoContent, hit(r, "10.1.0.5:4000", map[string]string{"X-Forwarded-For": "203.0.113.7"}))
	assert.Equal(t, http.StatusNoContent, hit(r, "10.1.0.5:4000", map[string]string{"X-Forwarded-For": "203.0.113.8"}),
		"clients behind a trusted proxy are told apart")
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.1.0.5:4000", map[string]string{"X-Forwarded-For": "203.0.113.7"}))
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newRateLimiterStore(10)
	store.now = func() time.Time { return now }

	store.getLimiter("a")
	now = now.Add(visitorIdle + time.Second)
	store.getLimiter("b")
	assert.Len(t, store.limiters, 1, "idle visitor dropped on the next sweep")

	store.limiters["stale"] = &visitor{lastSeen: now.Add(-2 * visitorIdle)}
	now = now.Add(sweepInterval / 2)
	store.getLimiter("b")
	assert.Contains(t, store.limiters, "stale", "no sweep before the interval elapses")

	now = now.Add(sweepInterval)
	store.getLimiter("b")
	assert.NotContains(t, store.limiters, "stale")
}

func TestRequestLoggerExposesLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Get("logger")
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
