package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/oncoguide-server/internal/domain"
)

// clientLimiter tracks one client's token bucket and its last use, so idle
// buckets can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client request rate on the consultation API.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
	lastSwep time.Time
}

// NewRateLimiter creates a per-client rate limiter from API configuration.
func NewRateLimiter(config *domain.APIConfig) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(config.RateLimitPerMinute) / 60.0),
		burst:    config.RateLimitBurst,
		maxIdle:  10 * time.Minute,
		lastSwep: time.Now(),
	}
}

// Handler returns the gin middleware enforcing the limit, keyed by client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": domain.NewAPIError(
					domain.ErrCodeRateLimit,
					"Too many requests",
					"Retry after the rate limit window resets",
					c.GetString("correlation_id"),
				),
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSwep) > rl.maxIdle {
		for ip, client := range rl.clients {
			if now.Sub(client.lastSeen) > rl.maxIdle {
				delete(rl.clients, ip)
			}
		}
		rl.lastSwep = now
	}

	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now

	return client.limiter.Allow()
}
