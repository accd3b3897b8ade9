package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ubi-mobility/payment-core/internal/config"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

// RateLimiter applies a token-bucket limit to a route group. Limits are per
// endpoint category, not per client; webhook endpoints get a higher budget
// than payment initiation.
func RateLimiter(limit config.CategoryLimit) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(limit.RPS), limit.Burst)

	return func(c *gin.Context) {
		remaining := int(math.Max(0, limiter.Tokens()-1))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !limiter.Allow() {
			retryAfter := time.Duration(float64(time.Second) / limit.RPS)
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))
			c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many requests, slow down and retry").
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
