package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCampaign(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	InsertMessage(ctx context.Context, db *gorm.DB, message *CampaignMessage) error

	FindCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Campaign, error)
	FindCampaignStatus(ctx context.Context, db *gorm.DB, id snowflake.ID) (CampaignStatus, error)
	FindMessageByProviderID(ctx context.Context, db *gorm.DB, providerMessageID string) (*CampaignMessage, error)

	// MarkRunning transitions the campaign to RUNNING, setting started_at
	// only on the first transition.
	MarkRunning(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	// ListQueuedMessages returns up to limit queued rows with retry head
	// room, oldest first.
	ListQueuedMessages(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, maxRetries, limit int) ([]CampaignMessage, error)

	// MarkSent claims the row and records the provider id. The update is
	// conditional on the row still being unsent; zero rows affected means a
	// concurrent batch already claimed it.
	MarkSent(ctx context.Context, db *gorm.DB, messageID snowflake.ID, providerMessageID string, now time.Time) (bool, error)

	// MarkFailed finalizes the row on its terminal failure. Conditional on
	// the row still being QUEUED.
	MarkFailed(ctx context.Context, db *gorm.DB, messageID snowflake.ID, errorMessage string, now time.Time) (bool, error)

	IncrementRetry(ctx context.Context, db *gorm.DB, messageID snowflake.ID, errorMessage string, now time.Time) error

	IncrementSentCount(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) error
	IncrementStatusCounter(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, status MessageStatus) error

	// UpdateMessageStatus applies a reconciled status to the message row,
	// only ever moving it forward in the delivery lifecycle.
	UpdateMessageStatus(ctx context.Context, db *gorm.DB, messageID snowflake.ID, status MessageStatus, errorMessage *string, now time.Time) error

	CountRemaining(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) (int64, error)

	// ListDispatchable returns ids of RUNNING campaigns that still have
	// queued messages with retry head room, oldest campaign first.
	ListDispatchable(ctx context.Context, db *gorm.DB, maxRetries, limit int) ([]snowflake.ID, error)

	// MarkCompleted completes the campaign when it is still RUNNING.
	MarkCompleted(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, now time.Time) (bool, error)
}
