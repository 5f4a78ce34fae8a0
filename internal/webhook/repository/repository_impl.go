package repository

import (
	"context"
	"time"

	webhookdomain "github.com/smallbiznis/blastwave/internal/webhook/domain"
	"github.com/smallbiznis/blastwave/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() webhookdomain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, gdb *gorm.DB, event *webhookdomain.WebhookEvent) (bool, error) {
	err := gdb.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (id, provider_message_id, status, event_timestamp, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ProviderMessageID,
		event.Status,
		event.EventTimestamp,
		event.Payload,
		event.ReceivedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) UpsertMessageEvent(ctx context.Context, gdb *gorm.DB, event *webhookdomain.MessageEvent) error {
	result := gdb.WithContext(ctx).Exec(
		`UPDATE message_events
		 SET status = ?, event_timestamp = ?, error_code = ?, error_message = ?,
			conversation_id = COALESCE(?, conversation_id),
			pricing_model = COALESCE(?, pricing_model),
			updated_at = ?
		 WHERE provider_message_id = ?`,
		event.Status,
		event.EventTimestamp,
		event.ErrorCode,
		event.ErrorMessage,
		event.ConversationID,
		event.PricingModel,
		time.Now().UTC(),
		event.ProviderMessageID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	err := gdb.WithContext(ctx).Exec(
		`INSERT INTO message_events (id, provider_message_id, status, event_timestamp,
			error_code, error_message, conversation_id, pricing_model, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ProviderMessageID,
		event.Status,
		event.EventTimestamp,
		event.ErrorCode,
		event.ErrorMessage,
		event.ConversationID,
		event.PricingModel,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Lost the insert race; apply as an update instead.
		return r.UpsertMessageEvent(ctx, gdb, event)
	}
	return err
}

func (r *repo) FindMessageEvent(ctx context.Context, gdb *gorm.DB, providerMessageID string) (*webhookdomain.MessageEvent, error) {
	var event webhookdomain.MessageEvent
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, provider_message_id, status, event_timestamp, error_code, error_message,
			conversation_id, pricing_model, created_at, updated_at
		 FROM message_events WHERE provider_message_id = ?`,
		providerMessageID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}
