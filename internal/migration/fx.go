package migration

import (
	"github.com/lumapag/pixgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sqliteSchema bootstraps the embedded-store case, where the versioned
// postgres migrations do not apply.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS entitlements (
		user_id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'inactive',
		expires_at TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		provider_tx_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		raw_response TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS ix_transactions_user ON transactions (user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_transactions_provider_tx ON transactions (provider_tx_id, id DESC)`,
}

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		switch cfg.DBType {
		case "postgres":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		case "sqlite":
			for _, stmt := range sqliteSchema {
				if err := conn.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		default:
			log.Warn("no managed migrations for this database type; expecting schema to exist",
				zap.String("type", cfg.DBType),
			)
			return nil
		}
	}),
)
