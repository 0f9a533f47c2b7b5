package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// Idle limiters are dropped after this long.
	Expiry time.Duration
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *cache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Expiry <= 0 {
		config.Expiry = 10 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		limiters: cache.New(config.Expiry, config.Expiry),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	// Add fails if another request created one first
	if err := rl.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		if v, ok := rl.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Status:  "error",
				Message: "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
