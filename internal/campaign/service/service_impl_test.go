package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepo "github.com/smallbiznis/blastwave/internal/audit/repository"
	auditservice "github.com/smallbiznis/blastwave/internal/audit/service"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	campaignrepo "github.com/smallbiznis/blastwave/internal/campaign/repository"
	campaignservice "github.com/smallbiznis/blastwave/internal/campaign/service"
	"github.com/smallbiznis/blastwave/internal/clock"
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/ratelimit"
	"github.com/smallbiznis/blastwave/internal/safety"
	templatedomain "github.com/smallbiznis/blastwave/internal/template/domain"
	templaterepo "github.com/smallbiznis/blastwave/internal/template/repository"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/blastwave/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/blastwave/internal/tenant/service"
	"github.com/smallbiznis/blastwave/internal/whatsapp"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeClient struct {
	calls  int
	fail   error
	failAt map[int]error
}

func (f *fakeClient) SendTemplate(ctx context.Context, creds whatsapp.Credentials, msg whatsapp.TemplateMessage) (string, error) {
	f.calls++
	if err, ok := f.failAt[f.calls]; ok {
		return "", err
	}
	if f.fail != nil {
		return "", f.fail
	}
	return fmt.Sprintf("wamid.%d", f.calls), nil
}

func (f *fakeClient) VerifyCredentials(ctx context.Context, creds whatsapp.Credentials) error {
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_campaign_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE tenants (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			sending_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE whatsapp_channels (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			phone_number_id TEXT NOT NULL,
			display_phone TEXT,
			access_token TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE message_templates (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			category TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE campaigns (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			template_id BIGINT NOT NULL,
			sent_count BIGINT NOT NULL DEFAULT 0,
			delivered_count BIGINT NOT NULL DEFAULT 0,
			read_count BIGINT NOT NULL DEFAULT 0,
			failed_count BIGINT NOT NULL DEFAULT 0,
			total_conversations BIGINT NOT NULL DEFAULT 0,
			billable_conversations BIGINT NOT NULL DEFAULT 0,
			total_cost NUMERIC NOT NULL DEFAULT 0,
			cost_currency TEXT NOT NULL DEFAULT 'USD',
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE campaign_messages (
			id BIGINT PRIMARY KEY,
			campaign_id BIGINT NOT NULL,
			recipient_phone TEXT NOT NULL,
			template_name TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			variables TEXT,
			status TEXT NOT NULL DEFAULT 'QUEUED',
			retry_count INT NOT NULL DEFAULT 0,
			provider_message_id TEXT,
			error_message TEXT,
			sent_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_campaign_messages_provider_id ON campaign_messages(provider_message_id)`,
		`CREATE TABLE audit_logs (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type dispatchHarness struct {
	svc     campaigndomain.Service
	client  *fakeClient
	db      *gorm.DB
	node    *snowflake.Node
	holder  *config.DispatchConfigHolder
	limiter *ratelimit.AdaptiveLimiter
	locker  *ratelimit.DispatchLocker
	clock   *clock.FakeClock
}

func newHarness(t *testing.T) *dispatchHarness {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	holder := &config.DispatchConfigHolder{}
	cfg := config.DefaultDispatchConfig()
	cfg.BaseDelayMs = 0
	cfg.MinDelayMs = 0
	cfg.FailureStepMs = 0
	holder.Set(cfg)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	limiter := ratelimit.NewAdaptiveLimiter(holder, clk)
	locker := ratelimit.NewDispatchLocker(config.Config{}, nil)
	client := &fakeClient{}

	tenantSvc := tenantservice.New(tenantservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  tenantrepo.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
	safetySvc := safety.New(safety.Params{
		Log:      zap.NewNop(),
		Dispatch: holder,
		Tenant:   tenantSvc,
	})

	svc := campaignservice.New(campaignservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Dispatch:     holder,
		Repo:         campaignrepo.Provide(),
		TemplateRepo: templaterepo.Provide(),
		Tenant:       tenantSvc,
		Safety:       safetySvc,
		Limiter:      limiter,
		Locker:       locker,
		Client:       client,
		Audit:        auditSvc,
	})

	return &dispatchHarness{
		svc:     svc,
		client:  client,
		db:      db,
		node:    node,
		holder:  holder,
		limiter: limiter,
		locker:  locker,
		clock:   clk,
	}
}

func (h *dispatchHarness) seedTenant(t *testing.T, channelStatus tenantdomain.ChannelStatus) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	tenantID := h.node.Generate()
	err := tenantrepo.Provide().Insert(context.Background(), h.db, &tenantdomain.Tenant{
		ID:             tenantID,
		Name:           "Acme Retail",
		Slug:           "acme-retail",
		SendingEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	err = h.db.Exec(
		`INSERT INTO whatsapp_channels (id, tenant_id, phone_number_id, display_phone, access_token, status, created_at, updated_at)
		 VALUES (?, ?, '1055512345', '+15550001111', 'token-abc', ?, ?, ?)`,
		h.node.Generate(), tenantID, channelStatus, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return tenantID
}

func (h *dispatchHarness) seedTemplate(t *testing.T, tenantID snowflake.ID, status templatedomain.TemplateStatus) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	templateID := h.node.Generate()
	err := templaterepo.Provide().Insert(context.Background(), h.db, &templatedomain.MessageTemplate{
		ID:        templateID,
		TenantID:  tenantID,
		Name:      "order_update",
		Language:  "en",
		Category:  "UTILITY",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return templateID
}

func (h *dispatchHarness) seedCampaign(t *testing.T, tenantID, templateID snowflake.ID, status campaigndomain.CampaignStatus, messageCount int) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	campaignID := h.node.Generate()
	err := campaignrepo.Provide().InsertCampaign(context.Background(), h.db, &campaigndomain.Campaign{
		ID:           campaignID,
		TenantID:     tenantID,
		Name:         "March Promo",
		Status:       status,
		TemplateID:   templateID,
		CostCurrency: "USD",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	for i := 0; i < messageCount; i++ {
		err := campaignrepo.Provide().InsertMessage(context.Background(), h.db, &campaigndomain.CampaignMessage{
			ID:             h.node.Generate(),
			CampaignID:     campaignID,
			RecipientPhone: fmt.Sprintf("91987654%04d", i),
			TemplateName:   "order_update",
			Language:       "en",
			Status:         campaigndomain.MessageStatusQueued,
			CreatedAt:      now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:      now,
		})
		if err != nil {
			t.Fatalf("seed message %d: %v", i, err)
		}
	}
	return campaignID
}

func (h *dispatchHarness) campaignRow(t *testing.T, campaignID snowflake.ID) campaigndomain.Campaign {
	t.Helper()

	var c campaigndomain.Campaign
	if err := h.db.Raw(`SELECT * FROM campaigns WHERE id = ?`, campaignID).Scan(&c).Error; err != nil {
		t.Fatalf("load campaign: %v", err)
	}
	return c
}

func TestProcessCampaignSendsFullBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 3)

	result, err := h.svc.ProcessCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("ProcessCampaign: %v", err)
	}
	if result.Processed != 3 || result.SuccessCount != 3 || result.FailCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RemainingCount != 0 {
		t.Fatalf("expected no remaining messages, got %d", result.RemainingCount)
	}
	if result.Status != campaigndomain.CampaignStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Status)
	}

	campaign := h.campaignRow(t, campaignID)
	if campaign.SentCount != 3 {
		t.Fatalf("expected sent_count 3, got %d", campaign.SentCount)
	}
	if campaign.StartedAt == nil || campaign.CompletedAt == nil {
		t.Fatalf("expected started_at and completed_at to be set")
	}

	var withProviderID int64
	if err := h.db.Raw(`SELECT COUNT(*) FROM campaign_messages WHERE campaign_id = ? AND provider_message_id IS NOT NULL`, campaignID).Scan(&withProviderID).Error; err != nil {
		t.Fatalf("count provider ids: %v", err)
	}
	if withProviderID != 3 {
		t.Fatalf("expected 3 provider message ids, got %d", withProviderID)
	}
}

func TestProcessCampaignNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ProcessCampaign(context.Background(), h.node.Generate())
	if err != campaigndomain.ErrCampaignNotFound {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestProcessCompletedCampaignReturnsInvalidStatus(t *testing.T) {
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusCompleted, 0)

	_, err := h.svc.ProcessCampaign(context.Background(), campaignID)
	if err != campaigndomain.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestProcessCampaignTemplateNotApproved(t *testing.T) {
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusPending)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 1)

	_, err := h.svc.ProcessCampaign(context.Background(), campaignID)
	if err != campaigndomain.ErrTemplateNotApproved {
		t.Fatalf("expected ErrTemplateNotApproved, got %v", err)
	}
	if h.client.calls != 0 {
		t.Fatalf("provider must not be called, got %d calls", h.client.calls)
	}
}

func TestProcessCampaignChannelNotConnected(t *testing.T) {
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusDisconnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 1)

	_, err := h.svc.ProcessCampaign(context.Background(), campaignID)
	if err != campaigndomain.ErrWhatsAppNotConnected {
		t.Fatalf("expected ErrWhatsAppNotConnected, got %v", err)
	}
}

func TestProcessCampaignGlobalKillSwitch(t *testing.T) {
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 1)

	cfg := h.holder.Get()
	cfg.SendingEnabled = false
	h.holder.Set(cfg)

	_, err := h.svc.ProcessCampaign(context.Background(), campaignID)
	if err != campaigndomain.ErrSendingDisabled {
		t.Fatalf("expected ErrSendingDisabled, got %v", err)
	}
	if h.client.calls != 0 {
		t.Fatalf("provider must not be called under kill switch")
	}
}

func TestProcessCampaignSkipsAlreadySentMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusRunning, 1)

	// Simulate a row that was claimed but left QUEUED by an interrupted batch.
	if err := h.db.Exec(
		`UPDATE campaign_messages SET provider_message_id = 'wamid.existing' WHERE campaign_id = ?`,
		campaignID,
	).Error; err != nil {
		t.Fatalf("claim message: %v", err)
	}

	result, err := h.svc.ProcessCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("ProcessCampaign: %v", err)
	}
	if h.client.calls != 0 {
		t.Fatalf("provider must not be invoked for claimed rows, got %d calls", h.client.calls)
	}
	if result.Processed != 0 {
		t.Fatalf("expected processed 0, got %d", result.Processed)
	}
	if got := h.campaignRow(t, campaignID).SentCount; got != 0 {
		t.Fatalf("sent_count must not change, got %d", got)
	}
}

func TestProcessCampaignBoundedRetries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 1)

	h.client.fail = &whatsapp.SendError{Code: 131026, Message: "message undeliverable"}

	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := h.svc.ProcessCampaign(ctx, campaignID); err != nil {
			t.Fatalf("ProcessCampaign attempt %d: %v", attempt, err)
		}
	}

	var message campaigndomain.CampaignMessage
	if err := h.db.Raw(`SELECT * FROM campaign_messages WHERE campaign_id = ?`, campaignID).Scan(&message).Error; err != nil {
		t.Fatalf("load message: %v", err)
	}
	if message.Status != campaigndomain.MessageStatusFailed {
		t.Fatalf("expected FAILED after max retries, got %s", message.Status)
	}
	if message.RetryCount != 3 {
		t.Fatalf("expected retry_count 3, got %d", message.RetryCount)
	}
	if got := h.campaignRow(t, campaignID).FailedCount; got != 1 {
		t.Fatalf("failed_count must increment exactly once, got %d", got)
	}
}

func TestProcessCampaignThrottleStopsBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 3)

	h.client.failAt = map[int]error{1: &whatsapp.SendError{Code: 130429, Message: "rate limit hit"}}

	result, err := h.svc.ProcessCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("ProcessCampaign: %v", err)
	}
	if result.Processed != 1 || result.FailCount != 1 {
		t.Fatalf("expected exactly one processed failure, got %+v", result)
	}

	var untouched int64
	if err := h.db.Raw(
		`SELECT COUNT(*) FROM campaign_messages WHERE campaign_id = ? AND status = 'QUEUED' AND retry_count = 0`,
		campaignID,
	).Scan(&untouched).Error; err != nil {
		t.Fatalf("count untouched: %v", err)
	}
	if untouched != 2 {
		t.Fatalf("remaining rows must be untouched, got %d", untouched)
	}

	// The throttle opened a cooldown; the next call must not send at all.
	h.client.failAt = nil
	result, err = h.svc.ProcessCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("ProcessCampaign during cooldown: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("expected processed 0 during cooldown, got %d", result.Processed)
	}

	// After the cooldown expires the batch drains normally.
	h.clock.Advance(2 * time.Minute)
	result, err = h.svc.ProcessCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("ProcessCampaign after cooldown: %v", err)
	}
	if result.SuccessCount != 3 {
		t.Fatalf("expected 3 successes after cooldown, got %+v", result)
	}
}

func TestProcessCampaignCompletionIsTerminal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 1)

	result, err := h.svc.ProcessCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("ProcessCampaign: %v", err)
	}
	if result.Status != campaigndomain.CampaignStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Status)
	}

	if _, err := h.svc.ProcessCampaign(ctx, campaignID); err != campaigndomain.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus on completed campaign, got %v", err)
	}
}

func TestProcessCampaignDispatchMutualExclusion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenantID := h.seedTenant(t, tenantdomain.ChannelStatusConnected)
	templateID := h.seedTemplate(t, tenantID, templatedomain.TemplateStatusApproved)
	campaignID := h.seedCampaign(t, tenantID, templateID, campaigndomain.CampaignStatusQueued, 1)

	release, acquired, err := h.locker.Acquire(ctx, campaignID.String())
	if err != nil || !acquired {
		t.Fatalf("acquire lock: acquired=%v err=%v", acquired, err)
	}
	defer release()

	if _, err := h.svc.ProcessCampaign(ctx, campaignID); err != campaigndomain.ErrDispatchInProgress {
		t.Fatalf("expected ErrDispatchInProgress, got %v", err)
	}
}
