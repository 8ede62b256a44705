package repository

import (
	"context"

	"github.com/aman-churiwal/redaction-gateway/internal/models"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

type RequestLogRepository struct {
	db *storage.Postgres
}

func NewRequestLogRepository(db *storage.Postgres) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

func (r *RequestLogRepository) CreateBatch(logs []models.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.DB.Create(&logs).Error
}

// Stats is the aggregate view served by the admin endpoint.
type Stats struct {
	TotalRequests    int64 `json:"total_requests"`
	RedactedRequests int64 `json:"redacted_requests"`
	RateLimited      int64 `json:"rate_limited"`
}

func (r *RequestLogRepository) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats

	if err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Count(&stats.TotalRequests).Error; err != nil {
		return nil, err
	}
	if err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("redacted = ?", true).
		Count(&stats.RedactedRequests).Error; err != nil {
		return nil, err
	}
	if err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("status_code = ?", 429).
		Count(&stats.RateLimited).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
