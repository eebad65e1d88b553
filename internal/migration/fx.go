package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(cfg config.Config, conn *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
		if err := Migrate(conn); err != nil {
			return err
		}
		log.Info("schema migrated", zap.String("dialect", conn.Dialector.Name()))

		if !cfg.SeedRegistrars {
			return nil
		}
		created, err := seed.EnsureRegistrars(context.Background(), conn, node)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Info("built-in registrars seeded", zap.Int("created", created))
		}
		return nil
	}),
)
