package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/blastwave/internal/audit/domain"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	"github.com/smallbiznis/blastwave/internal/clock"
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/observability/metrics"
	"github.com/smallbiznis/blastwave/internal/ratelimit"
	"github.com/smallbiznis/blastwave/internal/safety"
	templatedomain "github.com/smallbiznis/blastwave/internal/template/domain"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"github.com/smallbiznis/blastwave/internal/whatsapp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Dispatch     *config.DispatchConfigHolder
	Repo         campaigndomain.Repository
	TemplateRepo templatedomain.Repository
	Tenant       tenantdomain.Service
	Safety       safety.Service
	Limiter      *ratelimit.AdaptiveLimiter
	Locker       *ratelimit.DispatchLocker
	Client       whatsapp.Client
	Audit        auditdomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	dispatch     *config.DispatchConfigHolder
	repo         campaigndomain.Repository
	templateRepo templatedomain.Repository
	tenant       tenantdomain.Service
	safety       safety.Service
	limiter      *ratelimit.AdaptiveLimiter
	locker       *ratelimit.DispatchLocker
	client       whatsapp.Client
	audit        auditdomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) campaigndomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("campaign.dispatch"),
		genID:        p.GenID,
		clock:        p.Clock,
		dispatch:     p.Dispatch,
		repo:         p.Repo,
		templateRepo: p.TemplateRepo,
		tenant:       p.Tenant,
		safety:       p.Safety,
		limiter:      p.Limiter,
		locker:       p.Locker,
		client:       p.Client,
		audit:        p.Audit,
		metrics:      p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context, campaignID snowflake.ID) (*campaigndomain.Campaign, error) {
	campaign, err := s.repo.FindCampaign(ctx, s.db, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, campaigndomain.ErrCampaignNotFound
	}
	return campaign, nil
}

// ProcessCampaign drains one batch of queued messages. Sends are strictly
// sequential with an inter-message delay; the provider's per-account limit
// is the bottleneck, never local concurrency.
func (s *Service) ProcessCampaign(ctx context.Context, campaignID snowflake.ID) (*campaigndomain.ProcessResult, error) {
	campaign, err := s.repo.FindCampaign(ctx, s.db, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, campaigndomain.ErrCampaignNotFound
	}

	switch campaign.Status {
	case campaigndomain.CampaignStatusDraft,
		campaigndomain.CampaignStatusQueued,
		campaigndomain.CampaignStatusRunning:
	default:
		return nil, campaigndomain.ErrInvalidStatus
	}

	template, err := s.templateRepo.FindByID(ctx, s.db, campaign.TemplateID)
	if err != nil {
		return nil, err
	}
	if template == nil || template.Status != templatedomain.TemplateStatusApproved {
		return nil, campaigndomain.ErrTemplateNotApproved
	}

	channel, err := s.tenant.GetChannel(ctx, campaign.TenantID)
	if err != nil {
		if errors.Is(err, tenantdomain.ErrChannelNotFound) {
			return nil, campaigndomain.ErrWhatsAppNotConnected
		}
		return nil, err
	}
	if channel.Status != tenantdomain.ChannelStatusConnected {
		return nil, campaigndomain.ErrWhatsAppNotConnected
	}

	decision, err := s.safety.CheckSendingSafety(ctx, campaign.TenantID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.log.Warn("dispatch blocked by safety gate",
			zap.Int64("campaign_id", int64(campaignID)),
			zap.String("reason", decision.Reason),
		)
		return nil, campaigndomain.ErrSendingDisabled
	}

	release, acquired, err := s.locker.Acquire(ctx, campaignID.String())
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, campaigndomain.ErrDispatchInProgress
	}
	defer release()

	cfg := s.dispatch.Get()
	tenantID := campaign.TenantID.String()
	now := s.clock.Now()

	if err := s.repo.MarkRunning(ctx, s.db, campaignID, now); err != nil {
		return nil, err
	}

	if limit := s.limiter.GetTenantRateLimit(tenantID); limit.InCooldown {
		s.log.Info("tenant in cooldown, skipping batch",
			zap.Int64("campaign_id", int64(campaignID)),
			zap.Time("cooldown_until", limit.CooldownUntil),
		)
		return s.finishBatch(ctx, campaign, 0, 0, 0)
	}

	messages, err := s.repo.ListQueuedMessages(ctx, s.db, campaignID, cfg.MaxRetries, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	creds := whatsapp.Credentials{
		PhoneNumberID: channel.PhoneNumberID,
		AccessToken:   channel.AccessToken,
	}

	processed, successCount, failCount := 0, 0, 0
	for i, message := range messages {
		status, err := s.repo.FindCampaignStatus(ctx, s.db, campaignID)
		if err != nil {
			return nil, err
		}
		if status != campaigndomain.CampaignStatusRunning {
			s.log.Info("campaign no longer running, stopping batch",
				zap.Int64("campaign_id", int64(campaignID)),
				zap.String("status", string(status)),
			)
			break
		}

		if message.ProviderMessageID != nil {
			continue
		}

		processed++
		throttled, ok := s.sendOne(ctx, creds, &message, cfg.MaxRetries, tenantID)
		if ok {
			successCount++
		} else {
			failCount++
			if throttled {
				break
			}
		}

		if i < len(messages)-1 {
			delay := s.limiter.GetTenantRateLimit(tenantID).DelayMs
			s.pause(ctx, time.Duration(delay)*time.Millisecond)
		}
	}

	return s.finishBatch(ctx, campaign, processed, successCount, failCount)
}

// sendOne pushes a single message and applies the outcome. Returns whether
// the failure was a provider throttle and whether the send succeeded.
func (s *Service) sendOne(ctx context.Context, creds whatsapp.Credentials, message *campaigndomain.CampaignMessage, maxRetries int, tenantID string) (throttled, ok bool) {
	var variables []string
	if len(message.Variables) > 0 {
		if err := json.Unmarshal(message.Variables, &variables); err != nil {
			s.log.Warn("invalid template variables",
				zap.Int64("message_id", int64(message.ID)),
				zap.Error(err),
			)
		}
	}

	providerMessageID, err := s.client.SendTemplate(ctx, creds, whatsapp.TemplateMessage{
		To:           message.RecipientPhone,
		TemplateName: message.TemplateName,
		Language:     message.Language,
		Variables:    variables,
	})
	now := s.clock.Now()

	if err == nil {
		claimed, claimErr := s.repo.MarkSent(ctx, s.db, message.ID, providerMessageID, now)
		if claimErr != nil {
			s.log.Error("failed to record sent message",
				zap.Int64("message_id", int64(message.ID)),
				zap.Error(claimErr),
			)
			return false, false
		}
		if !claimed {
			s.log.Warn("message claimed by concurrent batch",
				zap.Int64("message_id", int64(message.ID)),
			)
			return false, false
		}
		if incErr := s.repo.IncrementSentCount(ctx, s.db, message.CampaignID); incErr != nil {
			s.log.Error("failed to increment sent count", zap.Error(incErr))
		}
		s.limiter.RecordSuccess(tenantID)
		s.metrics.RecordMessageSent(ctx, tenantID)
		return false, true
	}

	throttled = whatsapp.IsThrottleError(err)
	s.limiter.RecordFailure(tenantID, throttled)
	s.metrics.RecordSendFailure(ctx, tenantID, throttled)
	s.log.Warn("send failed",
		zap.Int64("message_id", int64(message.ID)),
		zap.Bool("throttled", throttled),
		zap.Error(err),
	)

	if message.RetryCount+1 >= maxRetries {
		failed, failErr := s.repo.MarkFailed(ctx, s.db, message.ID, err.Error(), now)
		if failErr != nil {
			s.log.Error("failed to finalize message", zap.Error(failErr))
			return throttled, false
		}
		if failed {
			if incErr := s.repo.IncrementStatusCounter(ctx, s.db, message.CampaignID, campaigndomain.MessageStatusFailed); incErr != nil {
				s.log.Error("failed to increment failed count", zap.Error(incErr))
			}
		}
	} else {
		if retryErr := s.repo.IncrementRetry(ctx, s.db, message.ID, err.Error(), now); retryErr != nil {
			s.log.Error("failed to increment retry count", zap.Error(retryErr))
		}
	}

	return throttled, false
}

func (s *Service) finishBatch(ctx context.Context, campaign *campaigndomain.Campaign, processed, successCount, failCount int) (*campaigndomain.ProcessResult, error) {
	remaining, err := s.repo.CountRemaining(ctx, s.db, campaign.ID)
	if err != nil {
		return nil, err
	}

	status := campaigndomain.CampaignStatusRunning
	if remaining == 0 {
		completed, err := s.repo.MarkCompleted(ctx, s.db, campaign.ID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		if completed {
			status = campaigndomain.CampaignStatusCompleted
		} else if current, err := s.repo.FindCampaignStatus(ctx, s.db, campaign.ID); err == nil && current != "" {
			status = current
		}
	} else if current, err := s.repo.FindCampaignStatus(ctx, s.db, campaign.ID); err == nil && current != "" {
		status = current
	}

	campaignID := campaign.ID.String()
	_ = s.audit.AuditLog(ctx, &campaign.TenantID, "campaign.batch_processed", "campaign", &campaignID, map[string]any{
		"processed":     processed,
		"success_count": successCount,
		"fail_count":    failCount,
		"remaining":     remaining,
		"status":        string(status),
	})

	return &campaigndomain.ProcessResult{
		Processed:      processed,
		SuccessCount:   successCount,
		FailCount:      failCount,
		RemainingCount: remaining,
		Status:         status,
	}, nil
}

func (s *Service) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
