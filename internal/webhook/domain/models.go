package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	"gorm.io/datatypes"
)

// WebhookEvent is the write-once idempotency ledger for inbound status
// events. Its existence for a (message, status, timestamp) triple is the
// replay guard; nothing ever updates a row.
type WebhookEvent struct {
	ID snowflake.ID `gorm:"primaryKey"`

	ProviderMessageID string `gorm:"type:text;not null;uniqueIndex:ux_webhook_events_key"`
	Status            string `gorm:"type:text;not null;uniqueIndex:ux_webhook_events_key"`
	EventTimestamp    string `gorm:"type:text;not null;uniqueIndex:ux_webhook_events_key"`

	Payload    datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (WebhookEvent) TableName() string { return "webhook_events" }

// MessageEvent is the latest reconciled delivery state per provider message
// id, continuously upserted.
type MessageEvent struct {
	ID snowflake.ID `gorm:"primaryKey"`

	ProviderMessageID string                       `gorm:"type:text;not null;uniqueIndex"`
	Status            campaigndomain.MessageStatus `gorm:"type:text;not null"`
	EventTimestamp    time.Time                    `gorm:"not null"`

	ErrorCode      *int    `gorm:"type:int"`
	ErrorMessage   *string `gorm:"type:text"`
	ConversationID *string `gorm:"type:text"`
	PricingModel   *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MessageEvent) TableName() string { return "message_events" }
