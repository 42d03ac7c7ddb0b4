package migrations

import (
	"github.com/NeuralTrust/TrustShield/pkg/infra/database"
	"gorm.io/gorm"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20261003_ban_expiry_index",
		Name: "Index temporary bans by expiry",

		Up: func(db *gorm.DB) error {
			return db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_ban_records_expiry
				ON ban_records (expires_at) WHERE is_active AND expires_at IS NOT NULL;
			`).Error
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`DROP INDEX IF EXISTS idx_ban_records_expiry;`).Error
		},
	})
}
