package migrations

import (
	"github.com/NeuralTrust/TrustShield/pkg/infra/database"
	"gorm.io/gorm"
)

// The users table is owned by the platform. Standalone deployments get a
// minimal copy so account escalation has something to act on.
func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20261002_users_table",
		Name: "Ensure users table with role and is_active",

		Up: func(db *gorm.DB) error {
			if err := db.Exec(`
				CREATE TABLE IF NOT EXISTS users (
					id        BIGSERIAL PRIMARY KEY,
					email     TEXT NOT NULL UNIQUE,
					role      TEXT NOT NULL DEFAULT 'BUYER',
					is_active BOOLEAN NOT NULL DEFAULT TRUE
				);
			`).Error; err != nil {
				return err
			}
			return db.Exec(`ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE;`).Error
		},

		Down: func(db *gorm.DB) error {
			return nil
		},
	})
}
