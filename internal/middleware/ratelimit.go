package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/ratelimit"
)

// RateLimit applies the per-tenant admission policy. Requests without a
// tenant identity (unprotected prefixes) are never limited.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString(ContextTenantToken)
		if token == "" {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), token)
		if err != nil {
			// Limiters degrade internally; a hard error still admits.
			c.Next()
			return
		}

		policy := limiter.Policy()
		c.Header("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":                    "too_many_requests",
				"retry_after":              retryAfter,
				"limit":                    policy.MaxRequests,
				"window_seconds":           int(policy.Window.Seconds()),
				"minimum_interval_seconds": policy.MinInterval.Seconds(),
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		c.Next()
	}
}
