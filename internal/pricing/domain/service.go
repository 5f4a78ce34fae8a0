package domain

import "context"

type Service interface {
	// GetPrice resolves the conversation price for a country and category,
	// falling back once to the OTHER bucket. Returns nil when no rate is
	// configured at all.
	GetPrice(ctx context.Context, countryCode string, category ConversationCategory) (*Price, error)
}
