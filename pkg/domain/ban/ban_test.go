package ban

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPermanentBans(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	account := NewPermanentAccountBan(42, "10 qualifying attack signals", now)
	require.NotNil(t, account.SubjectID)
	assert.Equal(t, SubjectAccount, account.SubjectType)
	assert.Equal(t, "42", account.BanKey)
	assert.Equal(t, int64(42), *account.SubjectID)
	assert.Nil(t, account.OriginAddress)

	origin := NewPermanentOriginBan("203.0.113.7", "10 unauthenticated signals", now)
	require.NotNil(t, origin.OriginAddress)
	assert.Equal(t, SubjectOrigin, origin.SubjectType)
	assert.Equal(t, "203.0.113.7", origin.BanKey)
	assert.Nil(t, origin.SubjectID)
	assert.NotEqual(t, account.ID, origin.ID)
}

func TestRecord_InEffect(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)

	permanent := NewPermanentAccountBan(1, "r", now)
	assert.True(t, permanent.InEffect(now.Add(24*365*time.Hour)))

	temporary := NewPermanentOriginBan("198.51.100.1", "r", now)
	temporary.Duration = DurationTemporary
	temporary.ExpiresAt = &expiry
	assert.True(t, temporary.InEffect(now))
	assert.False(t, temporary.InEffect(expiry))

	lifted := NewPermanentAccountBan(2, "r", now)
	lifted.IsActive = false
	assert.False(t, lifted.InEffect(now))
}
