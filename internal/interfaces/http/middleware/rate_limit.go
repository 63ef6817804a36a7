package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/riskpulse/internal/application/dto"
	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// callerLimiter tracks one caller's token bucket and its last activity for
// idle eviction.
type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-caller request budget. Rejections carry a
// Retry-After hint.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerLimiter

	perMinute int
	burst     int
}

// NewRateLimiter creates the limiter pool.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = constants.DefaultRateLimitPerMinute
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = perMinute / 4
		if burst < 1 {
			burst = 1
		}
	}
	rl := &RateLimiter{
		callers:   make(map[string]*callerLimiter),
		perMinute: perMinute,
		burst:     burst,
	}
	go rl.evictIdle()
	return rl
}

// Middleware returns the gin handler enforcing the limit. Callers are keyed
// by authenticated identity, falling back to client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CallerID(c.Request.Context())
		if key == "anonymous" {
			key = "ip:" + c.ClientIP()
		}

		if !rl.allow(key) {
			retryAfter := int(time.Minute.Seconds()) / rl.perMinute
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
			dto.SendError(c, pkgerrors.ErrRateLimited(retryAfter))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	cl, ok := rl.callers[key]
	if !ok {
		cl = &callerLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.burst),
		}
		rl.callers[key] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// evictIdle drops buckets idle for more than ten minutes.
func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for key, cl := range rl.callers {
			if cl.lastSeen.Before(cutoff) {
				delete(rl.callers, key)
			}
		}
		rl.mu.Unlock()
	}
}
