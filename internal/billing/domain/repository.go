package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindConversationByMetaID(ctx context.Context, db *gorm.DB, metaConversationID string) (*Conversation, error)
	InsertConversation(ctx context.Context, db *gorm.DB, conversation *Conversation) error
	InsertLedgerEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error

	// RecomputeCampaignAggregates re-derives the campaign's conversation
	// totals from its conversation rows. Always recomputed, never
	// incremented, so the aggregate cannot drift.
	RecomputeCampaignAggregates(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) error

	SumLedger(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (float64, error)
}
