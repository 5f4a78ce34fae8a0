package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/blastwave/internal/billing/domain"
	"github.com/smallbiznis/blastwave/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	"github.com/smallbiznis/blastwave/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    billingdomain.Repository
	Pricing pricingdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    billingdomain.Repository
	pricing pricingdomain.Service
	metrics *metrics.Metrics
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("billing.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		pricing: p.Pricing,
		metrics: p.Metrics,
	}
}

// TrackConversation books a conversation window exactly once. The existence
// check is the primary guard; the unique indexes on conversations and
// ledger_entries are the backstop under concurrent replays.
func (s *Service) TrackConversation(ctx context.Context, input billingdomain.TrackConversationInput) error {
	metaID := strings.TrimSpace(input.MetaConversationID)
	if metaID == "" || input.TenantID == 0 {
		return billingdomain.ErrInvalidConversation
	}

	existing, err := s.repo.FindConversationByMetaID(ctx, s.db, metaID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	category := input.Category
	if category == "" {
		category = pricingdomain.CategoryService
	}
	countryCode := pricingdomain.ResolveCountry(input.RecipientPhone)

	cost := 0.0
	currency := "USD"
	if input.Billable {
		price, err := s.pricing.GetPrice(ctx, countryCode, category)
		if err != nil {
			return err
		}
		if price != nil {
			cost = price.Amount
			currency = price.Currency
		}
	}

	conversation := &billingdomain.Conversation{
		ID:                 s.genID.Generate(),
		TenantID:           input.TenantID,
		CampaignID:         input.CampaignID,
		MetaConversationID: metaID,
		Category:           category,
		CountryCode:        countryCode,
		RecipientPhone:     input.RecipientPhone,
		Billable:           input.Billable,
		Cost:               cost,
		Currency:           currency,
		PricingModel:       input.PricingModel,
		OpenedAt:           input.OpenedAt.UTC(),
		CreatedAt:          input.OpenedAt.UTC(),
	}

	if err := s.repo.InsertConversation(ctx, s.db, conversation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("conversation already tracked", zap.String("meta_conversation_id", metaID))
			return nil
		}
		return err
	}
	s.metrics.RecordConversation(ctx, string(category), input.Billable)

	if cost > 0 {
		entry := &billingdomain.LedgerEntry{
			ID:            s.genID.Generate(),
			TenantID:      input.TenantID,
			ReferenceType: billingdomain.ReferenceTypeConversation,
			ReferenceID:   conversation.ID.String(),
			Amount:        cost,
			Currency:      currency,
			Description:   fmt.Sprintf("%s conversation %s (%s)", category, metaID, countryCode),
			CreatedAt:     conversation.CreatedAt,
		}
		if err := s.repo.InsertLedgerEntry(ctx, s.db, entry); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return err
			}
		} else {
			s.metrics.RecordLedgerEntry(ctx, billingdomain.ReferenceTypeConversation)
		}
	}

	if input.CampaignID != nil {
		if err := s.repo.RecomputeCampaignAggregates(ctx, s.db, *input.CampaignID); err != nil {
			return err
		}
	}

	return nil
}
