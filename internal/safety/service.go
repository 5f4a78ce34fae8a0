package safety

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/blastwave/internal/config"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Decision is the outcome of a sending safety check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Service is the kill switch gate consulted before every dispatch batch.
type Service interface {
	CheckSendingSafety(ctx context.Context, tenantID snowflake.ID) (Decision, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Dispatch *config.DispatchConfigHolder
	Tenant   tenantdomain.Service
}

type service struct {
	log      *zap.Logger
	dispatch *config.DispatchConfigHolder
	tenant   tenantdomain.Service
}

func New(p Params) Service {
	return &service{
		log:      p.Log.Named("safety.service"),
		dispatch: p.Dispatch,
		tenant:   p.Tenant,
	}
}

// CheckSendingSafety denies when either the global kill switch or the tenant
// sending flag is off. Checked once per batch, before any send.
func (s *service) CheckSendingSafety(ctx context.Context, tenantID snowflake.ID) (Decision, error) {
	if !s.dispatch.Get().SendingEnabled {
		s.log.Warn("sending blocked by global kill switch", zap.Int64("tenant_id", int64(tenantID)))
		return Decision{Allowed: false, Reason: "sending is disabled system-wide"}, nil
	}

	tenant, err := s.tenant.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenantdomain.ErrNotFound) {
			return Decision{Allowed: false, Reason: "tenant not found"}, nil
		}
		return Decision{}, err
	}
	if !tenant.SendingEnabled {
		return Decision{Allowed: false, Reason: "sending is disabled for this tenant"}, nil
	}

	return Decision{Allowed: true}, nil
}
