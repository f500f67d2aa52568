package migration

import (
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	"github.com/smallgrid/aquabill/internal/config"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
	"github.com/smallgrid/aquabill/internal/seed"
	sitedomain "github.com/smallgrid/aquabill/internal/site/domain"
	tariffdomain "github.com/smallgrid/aquabill/internal/tariff/domain"
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
			// Non-postgres targets (local sqlite) build the schema from
			// the models directly.
			if err := conn.AutoMigrate(
				&identitydomain.Role{},
				&identitydomain.User{},
				&sitedomain.Site{},
				&sitedomain.SiteAssignment{},
				&meterdomain.Meter{},
				&customerdomain.Customer{},
				&tariffdomain.UnitPrice{},
				&billingdomain.BillingRecord{},
				&billingdomain.PaymentLog{},
				&billingdomain.ReadingLog{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureRoles(conn)
	}),
)
