package scheduler

import (
	"context"
	"errors"
	"time"

	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	"github.com/smallbiznis/blastwave/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler dependencies are incomplete")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	CampaignSvc campaigndomain.Service
	Repo        campaigndomain.Repository
	Dispatch    *config.DispatchConfigHolder
	Config      Config `optional:"true"`
}

// Scheduler sweeps RUNNING campaigns and drains one batch from each, so
// dispatch keeps moving without an external caller hitting the process
// endpoint. Per-campaign locking makes concurrent sweeps safe.
type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	campaignSvc campaigndomain.Service
	repo        campaigndomain.Repository
	dispatch    *config.DispatchConfigHolder
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.CampaignSvc == nil || p.Repo == nil || p.Dispatch == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		campaignSvc: p.CampaignSvc,
		repo:        p.Repo,
		dispatch:    p.Dispatch,
	}, nil
}

// RunOnce drains one batch from every dispatchable campaign. Campaigns
// that are locked, throttled or disabled are skipped and retried on the
// next sweep.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	cfg := s.dispatch.Get()
	if !cfg.SendingEnabled {
		s.log.Debug("sweep skipped, sending disabled")
		return nil
	}

	ids, err := s.repo.ListDispatchable(ctx, s.db, cfg.MaxRetries, s.cfg.MaxCampaignsPerTick)
	if err != nil {
		return err
	}

	var errs error
	for _, id := range ids {
		result, err := s.campaignSvc.ProcessCampaign(ctx, id)
		if err != nil {
			switch {
			case errors.Is(err, campaigndomain.ErrDispatchInProgress),
				errors.Is(err, campaigndomain.ErrSendingDisabled),
				errors.Is(err, campaigndomain.ErrInvalidStatus):
				s.log.Debug("campaign skipped", zap.Int64("campaign_id", int64(id)), zap.Error(err))
			default:
				s.log.Warn("campaign sweep failed", zap.Int64("campaign_id", int64(id)), zap.Error(err))
				errs = errors.Join(errs, err)
			}
			continue
		}
		s.log.Info("campaign batch drained",
			zap.Int64("campaign_id", int64(id)),
			zap.Int("processed", result.Processed),
			zap.Int("success", result.SuccessCount),
			zap.Int("failed", result.FailCount),
			zap.Int64("remaining", result.RemainingCount),
		)
	}
	return errs
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
