package repository

import (
	"context"
	"time"

	"subpay/internal/domain"

	"gorm.io/gorm"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *domain.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// MarkProcessed stamps the event; processingError is empty on success.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id int64, processingError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     time.Now().UTC(),
			"processing_error": processingError,
		}).Error
}
