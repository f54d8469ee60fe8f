package migration

import (
	"github.com/smallbiznis/creditledger/internal/config"
	creditdomain "github.com/smallbiznis/creditledger/internal/credit/domain"
	statementdomain "github.com/smallbiznis/creditledger/internal/statement/domain"
	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations are written for PostgreSQL. Other dialects
		// (sqlite for local development, mysql) fall back to AutoMigrate.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&userdomain.User{},
				&subscriptiondomain.Subscription{},
				&usagedomain.WorkspaceSession{},
				&creditdomain.CreditGrant{},
				&statementdomain.StatementSnapshot{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
