package migration

import (
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.Bootstrap.EnsureDefaultTenant {
			if err := seed.EnsureDefaultTenant(conn, cfg.Bootstrap); err != nil {
				return err
			}
		}
		if cfg.Bootstrap.EnsureDefaultPricing {
			return seed.EnsureConversationRates(conn)
		}
		return nil
	}),
)
