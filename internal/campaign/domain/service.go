package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// ProcessCampaign drains up to one batch of queued messages for the
	// campaign, respecting safety and rate constraints.
	ProcessCampaign(ctx context.Context, campaignID snowflake.ID) (*ProcessResult, error)
	Get(ctx context.Context, campaignID snowflake.ID) (*Campaign, error)
}

var (
	ErrCampaignNotFound     = errors.New("campaign_not_found")
	ErrInvalidStatus        = errors.New("campaign_invalid_status")
	ErrTemplateNotApproved  = errors.New("template_not_approved")
	ErrWhatsAppNotConnected = errors.New("whatsapp_not_connected")
	ErrSendingDisabled      = errors.New("sending_disabled")
	ErrDispatchInProgress   = errors.New("dispatch_in_progress")
)
