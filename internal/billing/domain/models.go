package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
)

// Conversation is the billing unit: one provider-defined 24-hour messaging
// window. Created at most once per provider conversation id.
type Conversation struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	TenantID   snowflake.ID  `gorm:"not null;index"`
	CampaignID *snowflake.ID `gorm:"index"`

	MetaConversationID string                             `gorm:"type:text;not null;uniqueIndex"`
	Category           pricingdomain.ConversationCategory `gorm:"type:text;not null"`
	CountryCode        string                             `gorm:"type:text;not null"`
	RecipientPhone     string                             `gorm:"type:text;not null"`

	Billable     bool    `gorm:"not null;default:false"`
	Cost         float64 `gorm:"type:numeric;not null;default:0"`
	Currency     string  `gorm:"type:text;not null;default:'USD'"`
	PricingModel string  `gorm:"type:text"`

	OpenedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Conversation) TableName() string { return "conversations" }

// ReferenceTypeConversation keys ledger entries booked for conversations.
const ReferenceTypeConversation = "CONVERSATION"

// LedgerEntry is an immutable charge record, unique per reference so a
// replayed trigger can never double-book.
type LedgerEntry struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"not null;index"`

	ReferenceType string `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_reference"`
	ReferenceID   string `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_reference"`

	Amount      float64 `gorm:"type:numeric;not null"`
	Currency    string  `gorm:"type:text;not null;default:'USD'"`
	Description string  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
