package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a client's bucket is kept after its last request.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns per-client rate limiting middleware using token buckets.
//
// There are no user accounts, so clients are told apart by IP (c.ClientIP,
// which honors the router's trusted proxy settings). Each client's bucket
// refills at rps tokens/sec up to burst; an empty bucket means 429.
// Buckets idle for longer than idleLimiterTTL are dropped.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*clientLimiter)
	lastPrune := time.Now()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastPrune) > idleLimiterTTL {
			for k, l := range limiters {
				if now.Sub(l.lastSeen) > idleLimiterTTL {
					delete(limiters, k)
				}
			}
			lastPrune = now
		}
		cl, exists := limiters[ip]
		if !exists {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = cl
		}
		cl.lastSeen = now
		mu.Unlock()

		if !cl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
