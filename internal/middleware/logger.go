package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		requestID := c.GetString("request_id")
		tenantAbbr := c.GetString(ContextTenantAbbr)
		if tenantAbbr == "" {
			tenantAbbr = "-"
		}

		log.Printf("[%s] %s %s %s - %d - %v - %s",
			requestID,
			tenantAbbr,
			method,
			path,
			statusCode,
			latency,
			c.ClientIP(),
		)
	}
}
