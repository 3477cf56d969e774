package migration

import (
	"github.com/smallbiznis/recurra/internal/config"
	"github.com/smallbiznis/recurra/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, dbCfg db.Config, log *zap.Logger) error {
		if !cfg.DBRunMigrations {
			return nil
		}
		if !db.IsPostgres(dbCfg) {
			log.Warn("skipping embedded migrations for non-postgres database", zap.String("type", dbCfg.Type))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
