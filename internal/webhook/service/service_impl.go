package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/blastwave/internal/audit/domain"
	billingdomain "github.com/smallbiznis/blastwave/internal/billing/domain"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	"github.com/smallbiznis/blastwave/internal/clock"
	"github.com/smallbiznis/blastwave/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	webhookdomain "github.com/smallbiznis/blastwave/internal/webhook/domain"
	"github.com/smallbiznis/blastwave/internal/whatsapp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         webhookdomain.Repository
	CampaignRepo campaigndomain.Repository
	Billing      billingdomain.Service
	Audit        auditdomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         webhookdomain.Repository
	campaignRepo campaigndomain.Repository
	billing      billingdomain.Service
	audit        auditdomain.Service
	metrics      *metrics.Metrics
}

func NewService(p Params) webhookdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("webhook.reconciler"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		campaignRepo: p.CampaignRepo,
		billing:      p.Billing,
		audit:        p.Audit,
		metrics:      p.Metrics,
	}
}

// Reconcile walks every status entry in the payload. A failure on one entry
// never aborts the rest; it is logged and counted so repeated drops are
// visible on the reconcile failure metric.
func (s *Service) Reconcile(ctx context.Context, payload *whatsapp.WebhookPayload) {
	if payload == nil {
		return
	}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				if err := s.applyStatus(ctx, status); err != nil {
					s.log.Error("failed to reconcile status event",
						zap.String("provider_message_id", status.ID),
						zap.String("provider_status", status.Status),
						zap.Error(err),
					)
					s.metrics.RecordReconcileFailure(ctx, "apply_status")
				}
			}
		}
	}
}

func (s *Service) applyStatus(ctx context.Context, status whatsapp.Status) error {
	providerMessageID := strings.TrimSpace(status.ID)
	if providerMessageID == "" {
		s.log.Debug("status event without message id, skipping")
		return nil
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	inserted, err := s.repo.InsertEvent(ctx, s.db, &webhookdomain.WebhookEvent{
		ID:                s.genID.Generate(),
		ProviderMessageID: providerMessageID,
		Status:            strings.ToLower(strings.TrimSpace(status.Status)),
		EventTimestamp:    strings.TrimSpace(status.Timestamp),
		Payload:           datatypes.JSON(raw),
		ReceivedAt:        now,
	})
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Debug("webhook event already processed",
			zap.String("provider_message_id", providerMessageID),
			zap.String("provider_status", status.Status),
		)
		return nil
	}
	s.metrics.RecordWebhookEvent(ctx, status.Status)

	internal := webhookdomain.MapProviderStatus(status.Status)
	eventTime := parseEventTimestamp(status.Timestamp, now)

	var errorCode *int
	var errorMessage *string
	if len(status.Errors) > 0 {
		code := status.Errors[0].Code
		errorCode = &code
		message := status.Errors[0].Message
		if message == "" {
			message = status.Errors[0].Title
		}
		if message != "" {
			errorMessage = &message
		}
	}

	var conversationID *string
	if status.Conversation != nil && status.Conversation.ID != "" {
		conversationID = &status.Conversation.ID
	}
	var pricingModel *string
	if status.Pricing != nil && status.Pricing.PricingModel != "" {
		pricingModel = &status.Pricing.PricingModel
	}

	if err := s.repo.UpsertMessageEvent(ctx, s.db, &webhookdomain.MessageEvent{
		ID:                s.genID.Generate(),
		ProviderMessageID: providerMessageID,
		Status:            internal,
		EventTimestamp:    eventTime,
		ErrorCode:         errorCode,
		ErrorMessage:      errorMessage,
		ConversationID:    conversationID,
		PricingModel:      pricingModel,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		return err
	}

	message, err := s.campaignRepo.FindMessageByProviderID(ctx, s.db, providerMessageID)
	if err != nil {
		return err
	}

	var campaign *campaigndomain.Campaign
	if message != nil {
		campaign, err = s.applyToCampaign(ctx, message, internal, errorMessage, now)
		if err != nil {
			return err
		}
	}

	if status.Conversation != nil && status.Conversation.ID != "" {
		if err := s.trackConversation(ctx, status, campaign, now); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) applyToCampaign(ctx context.Context, message *campaigndomain.CampaignMessage, internal campaigndomain.MessageStatus, errorMessage *string, now time.Time) (*campaigndomain.Campaign, error) {
	if err := s.campaignRepo.UpdateMessageStatus(ctx, s.db, message.ID, internal, errorMessage, now); err != nil {
		return nil, err
	}

	switch internal {
	case campaigndomain.MessageStatusDelivered,
		campaigndomain.MessageStatusRead,
		campaigndomain.MessageStatusFailed:
		if err := s.campaignRepo.IncrementStatusCounter(ctx, s.db, message.CampaignID, internal); err != nil {
			return nil, err
		}
	}

	campaign, err := s.campaignRepo.FindCampaign(ctx, s.db, message.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, nil
	}

	if campaign.Status == campaigndomain.CampaignStatusRunning {
		remaining, err := s.campaignRepo.CountRemaining(ctx, s.db, campaign.ID)
		if err != nil {
			return campaign, err
		}
		if remaining == 0 {
			completed, err := s.campaignRepo.MarkCompleted(ctx, s.db, campaign.ID, now)
			if err != nil {
				return campaign, err
			}
			if completed {
				campaignID := campaign.ID.String()
				_ = s.audit.AuditLog(ctx, &campaign.TenantID, "campaign.completed", "campaign", &campaignID, map[string]any{
					"completed_by": "webhook_reconciler",
				})
			}
		}
	}

	return campaign, nil
}

func (s *Service) trackConversation(ctx context.Context, status whatsapp.Status, campaign *campaigndomain.Campaign, now time.Time) error {
	if campaign == nil {
		// Without a campaign link there is no tenant to bill against.
		s.log.Debug("conversation event without campaign link, skipping billing",
			zap.String("conversation_id", status.Conversation.ID),
		)
		return nil
	}

	category := ""
	billable := false
	pricingModel := ""
	if status.Pricing != nil {
		category = status.Pricing.Category
		billable = status.Pricing.Billable
		pricingModel = status.Pricing.PricingModel
	}
	if category == "" && status.Conversation.Origin != nil {
		category = status.Conversation.Origin.Type
	}

	campaignID := campaign.ID
	return s.billing.TrackConversation(ctx, billingdomain.TrackConversationInput{
		TenantID:           campaign.TenantID,
		CampaignID:         &campaignID,
		MetaConversationID: status.Conversation.ID,
		Category:           mapCategory(category),
		RecipientPhone:     status.RecipientID,
		Billable:           billable,
		PricingModel:       pricingModel,
		OpenedAt:           parseEventTimestamp(status.Timestamp, now),
	})
}

func mapCategory(provider string) pricingdomain.ConversationCategory {
	switch strings.ToUpper(strings.TrimSpace(provider)) {
	case "MARKETING":
		return pricingdomain.CategoryMarketing
	case "UTILITY":
		return pricingdomain.CategoryUtility
	case "AUTHENTICATION":
		return pricingdomain.CategoryAuthentication
	default:
		return pricingdomain.CategoryService
	}
}

func parseEventTimestamp(raw string, fallback time.Time) time.Time {
	seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Unix(seconds, 0).UTC()
}
