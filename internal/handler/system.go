package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/redactor"
	"github.com/aman-churiwal/redaction-gateway/internal/repository"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

var startTime = time.Now()

// Handles system-related endpoints
type SystemHandler struct {
	redis    *storage.RedisClient
	postgres *storage.Postgres
	client   *redactor.Client
	logs     *repository.RequestLogRepository
}

func NewSystemHandler(redis *storage.RedisClient, postgres *storage.Postgres, client *redactor.Client, logs *repository.RequestLogRepository) *SystemHandler {
	return &SystemHandler{
		redis:    redis,
		postgres: postgres,
		client:   client,
		logs:     logs,
	}
}

// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	redisHealthy := true
	redisMode := "local"
	if h.redis != nil {
		redisMode = "shared"
		if err := h.redis.Ping(ctx); err != nil {
			redisHealthy = false
			log.Printf("Redis health check failed: %v", err)
		}
	}

	dbHealthy := true
	if err := h.postgres.Ping(ctx); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "redaction-gateway",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
			"redactor": gin.H{
				"enabled": h.client.Enabled(),
				"breaker": h.client.BreakerState().String(),
			},
		},
		"store_mode": redisMode,
	})
}

// GET /hint. Serves the redaction instruction verbatim; knowing the
// policy is part of the game.
func (h *SystemHandler) Hint(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(h.client.SystemPrompt()))
}

// GET /admin/stats
func (h *SystemHandler) Stats(c *gin.Context) {
	stats, err := h.logs.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gateway":           "running",
		"uptime":            time.Since(startTime).Seconds(),
		"timestamp":         time.Now().Unix(),
		"total_requests":    stats.TotalRequests,
		"redacted_requests": stats.RedactedRequests,
		"rate_limited":      stats.RateLimited,
	})
}
