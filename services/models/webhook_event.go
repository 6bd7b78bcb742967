package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent marks a provider event as processed. ID is the provider's
// event id.
type WebhookEvent struct {
	ID          string `gorm:"primaryKey"`
	Provider    string `gorm:"not null;index"`
	Type        string `gorm:"not null"`
	Payload     datatypes.JSON
	ProcessedAt time.Time `gorm:"not null"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
