package models

import (
	"context"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
)

// WebhookEvent is an audit row per provider delivery. Deduplication is not
// enforced here; the reconciliation engine is idempotent, so replays are safe.
// The rows exist for manual review of mismatches and signature failures.
type WebhookEvent struct {
	ID              int        `gorm:"primary_key" json:"id"`
	Provider        string     `gorm:"size:20;not null;index" json:"provider"`
	EventType       string     `gorm:"size:100;not null;index" json:"event_type"`
	Reference       string     `gorm:"size:100;index" json:"reference"`
	Payload         string     `gorm:"type:longtext;not null" json:"payload"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func RecordWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.WithContext(ctx).Create(event).Error
}

func MarkWebhookEventProcessed(ctx context.Context, id int, processingError string) {
	db := config.GetDB()
	if db == nil || id == 0 {
		return
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{"processed_at": &now}
	if processingError != "" {
		updates["processing_error"] = processingError
	}
	if err := db.WithContext(ctx).Model(&WebhookEvent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		config.LogError(config.GetLogger(), "webhookEvent.go", "MarkWebhookEventProcessed", "update", id, err)
	}
}
