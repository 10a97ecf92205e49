package domain

import "time"

// WebhookEvent stores every signature-valid gateway delivery for audit.
// Payload is the raw request body, byte for byte.
type WebhookEvent struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	EventType       string     `gorm:"type:varchar(100);index" json:"event_type"`
	Payload         string     `gorm:"type:text;not null" json:"payload"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
