package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ConversationCategory is the Meta-defined billing category of a
// conversation window.
type ConversationCategory string

const (
	CategoryMarketing      ConversationCategory = "MARKETING"
	CategoryUtility        ConversationCategory = "UTILITY"
	CategoryAuthentication ConversationCategory = "AUTHENTICATION"
	CategoryService        ConversationCategory = "SERVICE"
)

// CountryOther is the fallback bucket for unresolved or unpriced countries.
const CountryOther = "OTHER"

// ConversationRate prices one (country, category) pair for an effective
// window. A nil EffectiveTo means open-ended.
type ConversationRate struct {
	ID            snowflake.ID         `gorm:"primaryKey"`
	CountryCode   string               `gorm:"type:text;not null;index:idx_rates_lookup"`
	Category      ConversationCategory `gorm:"type:text;not null;index:idx_rates_lookup"`
	Price         float64              `gorm:"type:numeric;not null"`
	Currency      string               `gorm:"type:text;not null;default:'USD'"`
	EffectiveFrom time.Time            `gorm:"not null"`
	EffectiveTo   *time.Time
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ConversationRate) TableName() string { return "conversation_rates" }

// Price is a resolved conversation price.
type Price struct {
	Amount   float64
	Currency string
}
