package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent commits the idempotency guard. Returns false without
	// error when the event key was already recorded.
	InsertEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)

	UpsertMessageEvent(ctx context.Context, db *gorm.DB, event *MessageEvent) error
	FindMessageEvent(ctx context.Context, db *gorm.DB, providerMessageID string) (*MessageEvent, error)
}
