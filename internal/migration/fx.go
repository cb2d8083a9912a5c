package migration

import (
	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	"github.com/prepdeck/metering/internal/config"
	"github.com/prepdeck/metering/internal/seed"
	visitordomain "github.com/prepdeck/metering/internal/visitor/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite/mysql dev mode: schema from the models.
			if err := conn.AutoMigrate(
				&accountdomain.Account{},
				&visitordomain.VisitorUsage{},
			); err != nil {
				return err
			}
		}

		if cfg.Environment != "production" {
			return seed.EnsureDemoAccounts(conn, genID)
		}
		return nil
	}),
)
