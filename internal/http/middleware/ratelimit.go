// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory, token-bucket rate limiter
// with per-IP buckets and opportunistic garbage collection. Webhook traffic
// from the payment processor is bursty but bounded; the limiter exists to
// shed abusive traffic hitting the public endpoint, not to throttle the
// processor.
//
// The limiter is process-local. A horizontally scaled deployment needs a
// distributed limiter to enforce global limits.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor holds a single bucket and the last time it was used, so idle
// buckets can be evicted.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client-IP token-bucket rate limiter, safe for
// concurrent use. Buckets are created on demand; idle ones are evicted
// opportunistically during lookups to bound memory.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size. An rps of 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// Handler returns the Gin middleware enforcing the limit. Over-limit
// requests receive a JSON 429 with a Retry-After hint.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rps <= 0 {
			c.Next()
			return
		}
		if !rl.allow("ip:" + c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "too_many_requests",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	// Evict idle buckets every 64th lookup.
	rl.cleanupN++
	if rl.cleanupN%64 == 0 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) > rl.ttl {
				delete(rl.visitors, k)
			}
		}
	}

	return v.limiter.Allow()
}
