package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/blastwave/internal/clock"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	pricingrepo "github.com/smallbiznis/blastwave/internal/pricing/repository"
	pricingservice "github.com/smallbiznis/blastwave/internal/pricing/service"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_pricing_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE conversation_rates (
			id BIGINT PRIMARY KEY,
			country_code TEXT NOT NULL,
			category TEXT NOT NULL,
			price NUMERIC NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			effective_from TIMESTAMP NOT NULL,
			effective_to TIMESTAMP,
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

func seedRate(t *testing.T, db *gorm.DB, node *snowflake.Node, country string, category pricingdomain.ConversationCategory, price float64, from time.Time, to *time.Time) {
	t.Helper()

	repo := pricingrepo.Provide()
	err := repo.Insert(context.Background(), db, &pricingdomain.ConversationRate{
		ID:            node.Generate(),
		CountryCode:   country,
		Category:      category,
		Price:         price,
		Currency:      "USD",
		EffectiveFrom: from,
		EffectiveTo:   to,
		CreatedAt:     from,
	})
	if err != nil {
		t.Fatalf("seed rate: %v", err)
	}
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) pricingdomain.Service {
	t.Helper()

	return pricingservice.New(pricingservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  pricingrepo.Provide(),
	})
}

func TestGetPriceCountrySpecific(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRate(t, db, node, "IN", pricingdomain.CategoryUtility, 0.0042, now.AddDate(0, -1, 0), nil)
	seedRate(t, db, node, pricingdomain.CountryOther, pricingdomain.CategoryUtility, 0.0200, now.AddDate(0, -1, 0), nil)

	svc := newService(t, db, clock.NewFakeClock(now))
	price, err := svc.GetPrice(ctx, "IN", pricingdomain.CategoryUtility)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price == nil {
		t.Fatalf("expected a price")
	}
	if price.Amount != 0.0042 || price.Currency != "USD" {
		t.Fatalf("expected 0.0042 USD, got %v %s", price.Amount, price.Currency)
	}
}

func TestGetPriceFallsBackToOther(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRate(t, db, node, pricingdomain.CountryOther, pricingdomain.CategoryMarketing, 0.0250, now.AddDate(0, -1, 0), nil)

	svc := newService(t, db, clock.NewFakeClock(now))
	price, err := svc.GetPrice(ctx, "FR", pricingdomain.CategoryMarketing)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price == nil || price.Amount != 0.0250 {
		t.Fatalf("expected OTHER fallback 0.0250, got %+v", price)
	}
}

func TestGetPriceNilWhenUnconfigured(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	price, err := svc.GetPrice(ctx, "IN", pricingdomain.CategoryAuthentication)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price != nil {
		t.Fatalf("expected nil price, got %+v", price)
	}
}

func TestGetPriceSelectsMostRecentCoveringWindow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expired := now.AddDate(0, -2, 0)
	seedRate(t, db, node, "IN", pricingdomain.CategoryUtility, 0.0050, now.AddDate(0, -6, 0), &expired)
	seedRate(t, db, node, "IN", pricingdomain.CategoryUtility, 0.0042, now.AddDate(0, -1, 0), nil)
	future := now.AddDate(0, 1, 0)
	seedRate(t, db, node, "IN", pricingdomain.CategoryUtility, 0.0060, future, nil)

	svc := newService(t, db, clock.NewFakeClock(now))
	price, err := svc.GetPrice(ctx, "IN", pricingdomain.CategoryUtility)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price == nil || price.Amount != 0.0042 {
		t.Fatalf("expected current window 0.0042, got %+v", price)
	}
}
