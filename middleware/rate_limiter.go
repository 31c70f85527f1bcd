package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nahio/utils"
)

// rateLimiterStore holds a map of IP addresses to their rate limiters.
type rateLimiterStore struct {
	limiters  map[string]*visitor
	perMin    int
	mu        sync.Mutex
	now       func() time.Time
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	visitorIdle   = 10 * time.Minute
	sweepInterval = time.Minute
)

func newRateLimiterStore(perMin int) *rateLimiterStore {
	if perMin <= 0 {
		perMin = 100
	}
	return &rateLimiterStore{limiters: make(map[string]*visitor), perMin: perMin, now: time.Now}
}

// getLimiter returns the rate limiter for a given IP, creating one if it doesn't exist.
func (s *rateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	v, exists := s.limiters[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)}
		s.limiters[ip] = v
	}
	v.lastSeen = now

	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}
	return v.limiter
}

// sweep drops visitors idle for longer than visitorIdle. Callers hold s.mu.
func (s *rateLimiterStore) sweep(now time.Time) {
	for key, v := range s.limiters {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

// RateLimitMiddleware limits requests per client IP to perMin per minute.
// The IP comes from gin's ClientIP, so forwarding headers only count when the
// engine trusts the proxy that sent them.
func RateLimitMiddleware(perMin int) gin.HandlerFunc {
	store := newRateLimiterStore(perMin)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !store.getLimiter(ip).Allow() {
			utils.GetLogger().Warn("Rate limit exceeded", zap.String("ip", ip))
			utils.JSONError(c, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Try again later.")
			return
		}
		c.Next()
	}
}
