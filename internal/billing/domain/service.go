package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
)

// TrackConversationInput carries the conversation attributes observed on a
// webhook status event.
type TrackConversationInput struct {
	TenantID           snowflake.ID
	CampaignID         *snowflake.ID
	MetaConversationID string
	Category           pricingdomain.ConversationCategory
	RecipientPhone     string
	Billable           bool
	PricingModel       string
	OpenedAt           time.Time
}

type Service interface {
	// TrackConversation books a conversation and its charge exactly once
	// per provider conversation id. Replays are no-ops.
	TrackConversation(ctx context.Context, input TrackConversationInput) error
}

var ErrInvalidConversation = errors.New("invalid_conversation")
