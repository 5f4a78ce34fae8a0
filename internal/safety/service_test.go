package safety_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/safety"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"go.uber.org/zap"
)

type stubTenantService struct {
	tenant *tenantdomain.Tenant
	err    error
}

func (s *stubTenantService) Create(ctx context.Context, name string) (*tenantdomain.Tenant, error) {
	return nil, nil
}

func (s *stubTenantService) Get(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	return s.tenant, s.err
}

func (s *stubTenantService) GetChannel(ctx context.Context, tenantID snowflake.ID) (*tenantdomain.WhatsAppChannel, error) {
	return nil, nil
}

func newGate(t *testing.T, globalEnabled, tenantEnabled bool) safety.Service {
	t.Helper()

	holder := &config.DispatchConfigHolder{}
	cfg := config.DefaultDispatchConfig()
	cfg.SendingEnabled = globalEnabled
	holder.Set(cfg)

	return safety.New(safety.Params{
		Log:      zap.NewNop(),
		Dispatch: holder,
		Tenant:   &stubTenantService{tenant: &tenantdomain.Tenant{ID: 1, SendingEnabled: tenantEnabled}},
	})
}

func TestCheckSendingSafetyAllows(t *testing.T) {
	gate := newGate(t, true, true)

	decision, err := gate.CheckSendingSafety(context.Background(), 1)
	if err != nil {
		t.Fatalf("CheckSendingSafety: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allowed, got reason %q", decision.Reason)
	}
}

func TestCheckSendingSafetyGlobalKillSwitch(t *testing.T) {
	gate := newGate(t, false, true)

	decision, err := gate.CheckSendingSafety(context.Background(), 1)
	if err != nil {
		t.Fatalf("CheckSendingSafety: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial under global kill switch")
	}
	if decision.Reason == "" {
		t.Fatalf("expected a human-readable reason")
	}
}

func TestCheckSendingSafetyTenantDisabled(t *testing.T) {
	gate := newGate(t, true, false)

	decision, err := gate.CheckSendingSafety(context.Background(), 1)
	if err != nil {
		t.Fatalf("CheckSendingSafety: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial for disabled tenant")
	}
}

func TestCheckSendingSafetyUnknownTenant(t *testing.T) {
	holder := &config.DispatchConfigHolder{}
	holder.Set(config.DefaultDispatchConfig())

	gate := safety.New(safety.Params{
		Log:      zap.NewNop(),
		Dispatch: holder,
		Tenant:   &stubTenantService{err: tenantdomain.ErrNotFound},
	})

	decision, err := gate.CheckSendingSafety(context.Background(), 42)
	if err != nil {
		t.Fatalf("CheckSendingSafety: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial for unknown tenant")
	}
}
