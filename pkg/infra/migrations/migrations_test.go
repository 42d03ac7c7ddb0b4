package migrations

import (
	"sort"
	"testing"

	"github.com/NeuralTrust/TrustShield/pkg/infra/database"
	"github.com/stretchr/testify/assert"
)

func TestMigrationsRegistered(t *testing.T) {
	migs := database.RegisteredMigrations()
	ids := make([]string, 0, len(migs))
	for _, m := range migs {
		assert.NotNil(t, m.Up, m.ID)
		assert.NotNil(t, m.Down, m.ID)
		ids = append(ids, m.ID)
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Contains(t, ids, "20261001_security_schema")
	assert.Contains(t, ids, "20261002_users_table")
	assert.Contains(t, ids, "20261003_ban_expiry_index")
}
