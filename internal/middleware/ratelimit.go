package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pbm-protocol-server/internal/domain"
)

// RateLimiter applies a token bucket per caller key. Buckets idle longer
// than the eviction window are dropped to keep memory bounded.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucketEntry
	rps      rate.Limit
	burst    int
	lastEval time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketEvictionWindow = 10 * time.Minute

// NewRateLimiter creates a rate limiter with the given per-key rate and
// burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucketEntry),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
		lastEval: time.Now(),
	}
}

// allow checks and updates the bucket for key.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.buckets[key]
	if !ok {
		entry = &bucketEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = entry
	}
	entry.lastSeen = now

	if now.Sub(rl.lastEval) > bucketEvictionWindow {
		for k, e := range rl.buckets {
			if now.Sub(e.lastSeen) > bucketEvictionWindow {
				delete(rl.buckets, k)
			}
		}
		rl.lastEval = now
	}

	return entry.limiter.Allow()
}

// Handler returns the gin middleware. The bucket key is the client id path
// parameter when present, falling back to the caller's IP for
// non-client-scoped routes.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("clientId")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.allow(key) {
			requestID := c.GetString("correlation_id")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewServiceError(
				"RATE_LIMIT_EXCEEDED",
				"Too many requests",
				"per-client request budget exhausted, retry later",
				requestID,
			))
			return
		}

		c.Next()
	}
}
