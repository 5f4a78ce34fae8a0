package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/blastwave/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) FindConversationByMetaID(ctx context.Context, db *gorm.DB, metaConversationID string) (*billingdomain.Conversation, error) {
	var c billingdomain.Conversation
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, campaign_id, meta_conversation_id, category, country_code,
			recipient_phone, billable, cost, currency, pricing_model, opened_at, created_at
		 FROM conversations WHERE meta_conversation_id = ?`,
		metaConversationID,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) InsertConversation(ctx context.Context, db *gorm.DB, c *billingdomain.Conversation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO conversations (id, tenant_id, campaign_id, meta_conversation_id, category,
			country_code, recipient_phone, billable, cost, currency, pricing_model, opened_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.TenantID,
		c.CampaignID,
		c.MetaConversationID,
		c.Category,
		c.CountryCode,
		c.RecipientPhone,
		c.Billable,
		c.Cost,
		c.Currency,
		c.PricingModel,
		c.OpenedAt,
		c.CreatedAt,
	).Error
}

func (r *repo) InsertLedgerEntry(ctx context.Context, db *gorm.DB, entry *billingdomain.LedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, tenant_id, reference_type, reference_id, amount, currency, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TenantID,
		entry.ReferenceType,
		entry.ReferenceID,
		entry.Amount,
		entry.Currency,
		entry.Description,
		entry.CreatedAt,
	).Error
}

func (r *repo) RecomputeCampaignAggregates(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE campaigns SET
			total_conversations = (SELECT COUNT(*) FROM conversations WHERE campaign_id = ?),
			billable_conversations = (SELECT COUNT(*) FROM conversations WHERE campaign_id = ? AND billable),
			total_cost = (SELECT COALESCE(SUM(cost), 0) FROM conversations WHERE campaign_id = ?),
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		campaignID,
		campaignID,
		campaignID,
		campaignID,
	).Error
}

func (r *repo) SumLedger(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE tenant_id = ?`,
		tenantID,
	).Scan(&total).Error
	return total, err
}
