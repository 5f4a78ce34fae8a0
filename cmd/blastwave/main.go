package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/blastwave/internal/audit"
	"github.com/smallbiznis/blastwave/internal/billing"
	"github.com/smallbiznis/blastwave/internal/campaign"
	"github.com/smallbiznis/blastwave/internal/clock"
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/migration"
	"github.com/smallbiznis/blastwave/internal/observability"
	"github.com/smallbiznis/blastwave/internal/opsmetrics"
	"github.com/smallbiznis/blastwave/internal/pricing"
	"github.com/smallbiznis/blastwave/internal/ratelimit"
	"github.com/smallbiznis/blastwave/internal/safety"
	"github.com/smallbiznis/blastwave/internal/scheduler"
	"github.com/smallbiznis/blastwave/internal/server"
	"github.com/smallbiznis/blastwave/internal/template"
	"github.com/smallbiznis/blastwave/internal/tenant"
	"github.com/smallbiznis/blastwave/internal/webhook"
	"github.com/smallbiznis/blastwave/internal/whatsapp"
	"github.com/smallbiznis/blastwave/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		tenant.Module,
		template.Module,
		audit.Module,
		pricing.Module,
		billing.Module,
		safety.Module,
		ratelimit.Module,
		whatsapp.Module,
		campaign.Module,
		webhook.Module,

		// Surfaces
		server.Module,
		scheduler.Module,
		opsmetrics.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
