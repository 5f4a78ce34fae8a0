package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rate *ConversationRate) error
	// FindEffectiveRate returns the most recent rate whose effective window
	// covers asOf, or nil when none is configured.
	FindEffectiveRate(ctx context.Context, db *gorm.DB, countryCode string, category ConversationCategory, asOf time.Time) (*ConversationRate, error)
	CountRates(ctx context.Context, db *gorm.DB) (int64, error)
}
