package memory

import (
	"context"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanRepository_OneActivePerKey(t *testing.T) {
	ctx := context.Background()
	repo := NewBanRepository()
	now := time.Now()

	created, err := repo.CreateIfAbsent(ctx, ban.NewPermanentAccountBan(7, "first", now))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, ban.NewPermanentAccountBan(7, "second", now))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.All(), 1)
}

func TestBanRepository_ExpiredTemporaryBanIsReplaced(t *testing.T) {
	ctx := context.Background()
	repo := NewBanRepository()
	now := time.Now()
	expired := now.Add(-time.Minute)
	subjectID := int64(3)

	_, err := repo.CreateIfAbsent(ctx, &ban.Record{
		ID:          uuid.New(),
		SubjectType: ban.SubjectAccount,
		BanKey:      ban.AccountKey(subjectID),
		SubjectID:   &subjectID,
		Duration:    ban.DurationTemporary,
		ExpiresAt:   &expired,
		IsActive:    true,
		CreatedAt:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	found, err := repo.FindActive(ctx, ban.SubjectAccount, ban.AccountKey(subjectID), now)
	require.NoError(t, err)
	assert.Nil(t, found)

	created, err := repo.CreateIfAbsent(ctx, ban.NewPermanentAccountBan(subjectID, "repeat", now))
	require.NoError(t, err)
	assert.True(t, created)

	active := 0
	for _, r := range repo.All() {
		if r.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestSignalRepository_Counts(t *testing.T) {
	ctx := context.Background()
	repo := NewSignalRepository()
	now := time.Now()
	subject := int64(1)

	require.NoError(t, repo.Append(ctx, &signal.ThreatSignal{ID: uuid.New(), SubjectID: &subject, OriginAddress: "1.1.1.1", OccurredAt: now}))
	require.NoError(t, repo.Append(ctx, &signal.ThreatSignal{ID: uuid.New(), OriginAddress: "1.1.1.1", OccurredAt: now}))
	require.NoError(t, repo.Append(ctx, &signal.ThreatSignal{ID: uuid.New(), OriginAddress: "1.1.1.1", OccurredAt: now.Add(-48 * time.Hour)}))

	n, err := repo.CountBySubject(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountUnauthenticatedByOrigin(ctx, "1.1.1.1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindingRepository_SaveIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewFindingRepository()
	f := &correlation.Finding{ID: uuid.New(), Status: correlation.StatusOpen, CreatedAt: time.Now()}

	created, err := repo.SaveIfAbsent(ctx, f)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.SaveIfAbsent(ctx, f)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, repo.UpdateStatus(ctx, f.ID, correlation.StatusClosed))
	open, err := repo.ListOpen(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, open)

	assert.Error(t, repo.UpdateStatus(ctx, uuid.New(), correlation.StatusClosed))
}

func TestThrottleRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewThrottleRepository(func() time.Time { return now })

	set, _ := repo.SetIfAbsent(ctx, "9.9.9.9", time.Hour)
	assert.True(t, set)
	set, _ = repo.SetIfAbsent(ctx, "9.9.9.9", time.Hour)
	assert.False(t, set)

	now = now.Add(2 * time.Hour)
	ok, _ := repo.IsThrottled(ctx, "9.9.9.9")
	assert.False(t, ok)
}
