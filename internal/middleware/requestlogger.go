package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/models"
	"github.com/aman-churiwal/redaction-gateway/internal/repository"
)

// Buffered channel for async logging
var logChannel chan models.RequestLog

// Starts the background worker that drains request log entries into the
// database in batches. Call once at startup.
func InitRequestLogger(repo *repository.RequestLogRepository, bufferSize int) {
	logChannel = make(chan models.RequestLog, bufferSize)

	go func() {
		batch := make([]models.RequestLog, 0, 100)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case entry := <-logChannel:
				batch = append(batch, entry)

				if len(batch) >= 100 {
					insertBatch(repo, batch)
					batch = make([]models.RequestLog, 0, 100)
				}
			case <-ticker.C:
				if len(batch) > 0 {
					insertBatch(repo, batch)
					batch = make([]models.RequestLog, 0, 100)
				}
			}
		}
	}()
}

func insertBatch(repo *repository.RequestLogRepository, logs []models.RequestLog) {
	if err := repo.CreateBatch(logs); err != nil {
		// Log error but dont block
		log.Printf("Failed to insert request logs: %v", err)
	}
}

// Logs all HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)

		logEntry := models.RequestLog{
			Timestamp:      start,
			TenantAbbr:     c.GetString(ContextTenantAbbr),
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(duration.Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			Redacted:       c.GetBool("redacted"),
		}

		if logChannel == nil {
			return
		}

		select {
		case logChannel <- logEntry:
			// Successfully queued
		default:
			// Channel full, skip logging to avoid blocking
			log.Println("Request log channel full, skipping log entry")
		}
	}
}
