package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	campaignrepo "github.com/smallbiznis/blastwave/internal/campaign/repository"
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/scheduler"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type stubDispatchService struct {
	calls []snowflake.ID
	err   error
}

func (s *stubDispatchService) ProcessCampaign(ctx context.Context, campaignID snowflake.ID) (*campaigndomain.ProcessResult, error) {
	s.calls = append(s.calls, campaignID)
	if s.err != nil {
		return nil, s.err
	}
	return &campaigndomain.ProcessResult{Processed: 1, SuccessCount: 1, Status: campaigndomain.CampaignStatusRunning}, nil
}

func (s *stubDispatchService) Get(ctx context.Context, campaignID snowflake.ID) (*campaigndomain.Campaign, error) {
	return nil, campaigndomain.ErrCampaignNotFound
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_scheduler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedCampaign(t *testing.T, db *gorm.DB, id int64, status campaigndomain.CampaignStatus, queued int, retryCount int) {
	t.Helper()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO campaigns (id, tenant_id, name, status, template_id, started_at, created_at, updated_at)
		 VALUES (?, 1, ?, ?, 1, ?, ?, ?)`,
		id, fmt.Sprintf("campaign-%d", id), status, now, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	for i := 0; i < queued; i++ {
		err := db.Exec(
			`INSERT INTO campaign_messages (id, campaign_id, recipient_phone, template_name, status, retry_count, created_at, updated_at)
			 VALUES (?, ?, ?, 'welcome_offer', 'QUEUED', ?, ?, ?)`,
			id*1000+int64(i), id, fmt.Sprintf("91987654%04d", i), retryCount, now, now,
		).Error
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
}

func newScheduler(t *testing.T, db *gorm.DB, svc campaigndomain.Service, holder *config.DispatchConfigHolder) *scheduler.Scheduler {
	t.Helper()
	sched, err := scheduler.New(scheduler.Params{
		DB:          db,
		Log:         zap.NewNop(),
		CampaignSvc: svc,
		Repo:        campaignrepo.Provide(),
		Dispatch:    holder,
		Config:      scheduler.Config{Enabled: true, RunInterval: time.Second, MaxCampaignsPerTick: 10},
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched
}

func newHolder(t *testing.T) *config.DispatchConfigHolder {
	t.Helper()
	holder := &config.DispatchConfigHolder{}
	holder.Set(config.DefaultDispatchConfig())
	return holder
}

func TestRunOnceDrainsRunningCampaigns(t *testing.T) {
	db := setupTestDB(t)
	seedCampaign(t, db, 100, campaigndomain.CampaignStatusRunning, 3, 0)
	seedCampaign(t, db, 200, campaigndomain.CampaignStatusRunning, 1, 0)
	seedCampaign(t, db, 300, campaigndomain.CampaignStatusCompleted, 0, 0)
	seedCampaign(t, db, 400, campaigndomain.CampaignStatusDraft, 2, 0)

	svc := &stubDispatchService{}
	sched := newScheduler(t, db, svc, newHolder(t))

	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(svc.calls) != 2 {
		t.Fatalf("expected 2 campaigns processed, got %d", len(svc.calls))
	}
	if svc.calls[0] != 100 || svc.calls[1] != 200 {
		t.Fatalf("unexpected campaign order: %v", svc.calls)
	}
}

func TestRunOnceSkipsExhaustedRetries(t *testing.T) {
	db := setupTestDB(t)
	seedCampaign(t, db, 100, campaigndomain.CampaignStatusRunning, 2, 3)

	svc := &stubDispatchService{}
	sched := newScheduler(t, db, svc, newHolder(t))

	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("campaigns with exhausted retries must be skipped, got %v", svc.calls)
	}
}

func TestRunOnceHonorsKillSwitch(t *testing.T) {
	db := setupTestDB(t)
	seedCampaign(t, db, 100, campaigndomain.CampaignStatusRunning, 1, 0)

	holder := newHolder(t)
	cfg := config.DefaultDispatchConfig()
	cfg.SendingEnabled = false
	holder.Set(cfg)

	svc := &stubDispatchService{}
	sched := newScheduler(t, db, svc, holder)

	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("kill switch must stop the sweep, got %v", svc.calls)
	}
}

func TestRunOnceToleratesSkippableErrors(t *testing.T) {
	db := setupTestDB(t)
	seedCampaign(t, db, 100, campaigndomain.CampaignStatusRunning, 1, 0)

	svc := &stubDispatchService{err: campaigndomain.ErrDispatchInProgress}
	sched := newScheduler(t, db, svc, newHolder(t))

	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("lock contention must not surface as an error: %v", err)
	}
}
