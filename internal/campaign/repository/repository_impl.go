package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() campaigndomain.Repository {
	return &repo{}
}

func (r *repo) InsertCampaign(ctx context.Context, db *gorm.DB, c *campaigndomain.Campaign) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO campaigns (id, tenant_id, name, status, template_id,
			sent_count, delivered_count, read_count, failed_count,
			total_conversations, billable_conversations, total_cost, cost_currency,
			started_at, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.TenantID,
		c.Name,
		c.Status,
		c.TemplateID,
		c.SentCount,
		c.DeliveredCount,
		c.ReadCount,
		c.FailedCount,
		c.TotalConversations,
		c.BillableConversations,
		c.TotalCost,
		c.CostCurrency,
		c.StartedAt,
		c.CompletedAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, m *campaigndomain.CampaignMessage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO campaign_messages (id, campaign_id, recipient_phone, template_name, language,
			variables, status, retry_count, provider_message_id, error_message,
			sent_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.CampaignID,
		m.RecipientPhone,
		m.TemplateName,
		m.Language,
		m.Variables,
		m.Status,
		m.RetryCount,
		m.ProviderMessageID,
		m.ErrorMessage,
		m.SentAt,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID) (*campaigndomain.Campaign, error) {
	var c campaigndomain.Campaign
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, status, template_id,
			sent_count, delivered_count, read_count, failed_count,
			total_conversations, billable_conversations, total_cost, cost_currency,
			started_at, completed_at, created_at, updated_at
		 FROM campaigns WHERE id = ?`,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) FindCampaignStatus(ctx context.Context, db *gorm.DB, id snowflake.ID) (campaigndomain.CampaignStatus, error) {
	var status string
	err := db.WithContext(ctx).Raw(
		`SELECT status FROM campaigns WHERE id = ?`,
		id,
	).Scan(&status).Error
	if err != nil {
		return "", err
	}
	return campaigndomain.CampaignStatus(status), nil
}

func (r *repo) FindMessageByProviderID(ctx context.Context, db *gorm.DB, providerMessageID string) (*campaigndomain.CampaignMessage, error) {
	var m campaigndomain.CampaignMessage
	err := db.WithContext(ctx).Raw(
		`SELECT id, campaign_id, recipient_phone, template_name, language, variables,
			status, retry_count, provider_message_id, error_message,
			sent_at, created_at, updated_at
		 FROM campaign_messages WHERE provider_message_id = ?`,
		providerMessageID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) MarkRunning(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE campaigns
		 SET status = ?, started_at = COALESCE(started_at, ?), updated_at = ?
		 WHERE id = ? AND status IN (?, ?, ?)`,
		campaigndomain.CampaignStatusRunning,
		now,
		now,
		id,
		campaigndomain.CampaignStatusDraft,
		campaigndomain.CampaignStatusQueued,
		campaigndomain.CampaignStatusRunning,
	).Error
}

func (r *repo) ListQueuedMessages(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, maxRetries, limit int) ([]campaigndomain.CampaignMessage, error) {
	var messages []campaigndomain.CampaignMessage
	err := db.WithContext(ctx).Raw(
		`SELECT id, campaign_id, recipient_phone, template_name, language, variables,
			status, retry_count, provider_message_id, error_message,
			sent_at, created_at, updated_at
		 FROM campaign_messages
		 WHERE campaign_id = ? AND status = ? AND retry_count < ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		campaignID,
		campaigndomain.MessageStatusQueued,
		maxRetries,
		limit,
	).Scan(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, messageID snowflake.ID, providerMessageID string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE campaign_messages
		 SET status = ?, provider_message_id = ?, sent_at = ?, error_message = NULL, updated_at = ?
		 WHERE id = ? AND status = ? AND provider_message_id IS NULL`,
		campaigndomain.MessageStatusSent,
		providerMessageID,
		now,
		now,
		messageID,
		campaigndomain.MessageStatusQueued,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, messageID snowflake.ID, errorMessage string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE campaign_messages
		 SET status = ?, retry_count = retry_count + 1, error_message = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		campaigndomain.MessageStatusFailed,
		errorMessage,
		now,
		messageID,
		campaigndomain.MessageStatusQueued,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) IncrementRetry(ctx context.Context, db *gorm.DB, messageID snowflake.ID, errorMessage string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE campaign_messages
		 SET retry_count = retry_count + 1, error_message = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		errorMessage,
		now,
		messageID,
		campaigndomain.MessageStatusQueued,
	).Error
}

func (r *repo) IncrementSentCount(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE campaigns SET sent_count = sent_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		campaignID,
	).Error
}

func (r *repo) IncrementStatusCounter(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, status campaigndomain.MessageStatus) error {
	var column string
	switch status {
	case campaigndomain.MessageStatusDelivered:
		column = "delivered_count"
	case campaigndomain.MessageStatusRead:
		column = "read_count"
	case campaigndomain.MessageStatusFailed:
		column = "failed_count"
	default:
		return nil
	}
	stmt := fmt.Sprintf(
		`UPDATE campaigns SET %s = %s + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		column, column,
	)
	return db.WithContext(ctx).Exec(stmt, campaignID).Error
}

// statusRank orders the delivery lifecycle so reconciled updates never move
// a message backwards (a late "delivered" must not undo "read").
func statusRank(status campaigndomain.MessageStatus) int {
	switch status {
	case campaigndomain.MessageStatusQueued:
		return 0
	case campaigndomain.MessageStatusSent:
		return 1
	case campaigndomain.MessageStatusDelivered:
		return 2
	case campaigndomain.MessageStatusRead:
		return 3
	case campaigndomain.MessageStatusFailed:
		return 4
	default:
		return 0
	}
}

func (r *repo) UpdateMessageStatus(ctx context.Context, db *gorm.DB, messageID snowflake.ID, status campaigndomain.MessageStatus, errorMessage *string, now time.Time) error {
	guarded := make([]interface{}, 0, 4)
	for _, candidate := range []campaigndomain.MessageStatus{
		campaigndomain.MessageStatusQueued,
		campaigndomain.MessageStatusSent,
		campaigndomain.MessageStatusDelivered,
		campaigndomain.MessageStatusRead,
	} {
		if statusRank(candidate) < statusRank(status) {
			guarded = append(guarded, candidate)
		}
	}
	if len(guarded) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE campaign_messages
		 SET status = ?, error_message = COALESCE(?, error_message), updated_at = ?
		 WHERE id = ? AND status IN ?`,
		status,
		errorMessage,
		now,
		messageID,
		guarded,
	).Error
}

func (r *repo) CountRemaining(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM campaign_messages WHERE campaign_id = ? AND status = ?`,
		campaignID,
		campaigndomain.MessageStatusQueued,
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListDispatchable(ctx context.Context, db *gorm.DB, maxRetries, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT c.id
		 FROM campaigns c
		 WHERE c.status = ?
		   AND EXISTS (
		     SELECT 1 FROM campaign_messages m
		     WHERE m.campaign_id = c.id AND m.status = ? AND m.retry_count < ?
		   )
		 ORDER BY c.started_at ASC, c.id ASC
		 LIMIT ?`,
		campaigndomain.CampaignStatusRunning,
		campaigndomain.MessageStatusQueued,
		maxRetries,
		limit,
	).Scan(&ids).Error
	return ids, err
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE campaigns
		 SET status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		campaigndomain.CampaignStatusCompleted,
		now,
		now,
		campaignID,
		campaigndomain.CampaignStatusRunning,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
