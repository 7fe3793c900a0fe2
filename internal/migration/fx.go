package migration

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	invoicedomain "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; model-driven schema is
			// good enough there.
			if err := conn.AutoMigrate(
				&creatordomain.Creator{},
				&memberdomain.Member{},
				&commissiondomain.Commission{},
				&invoicedomain.Invoice{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData && cfg.IsDevelopment() {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
