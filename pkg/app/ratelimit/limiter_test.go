package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	store "github.com/NeuralTrust/TrustShield/pkg/infra/ratelimit"
	"github.com/NeuralTrust/TrustShield/pkg/infra/repository/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Admit(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (store.Decision, error) {
	args := m.Called(ctx, identifier, limit, window, now)
	return args.Get(0).(store.Decision), args.Error(1)
}

type limiterFixture struct {
	limiter   Limiter
	streams   *memory.StreamRepository
	throttles *memory.ThrottleRepository
	now       time.Time
}

func testConfig() Config {
	return Config{
		Classes: map[string]Class{
			DefaultClass: {Limit: 100, Window: time.Minute},
			"login":      {Limit: 5, Window: time.Minute},
		},
		ThrottleDivisor: 5,
		StoreTimeout:    time.Second,
	}
}

func setupLimiter(t *testing.T, s store.Store) *limiterFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	f := &limiterFixture{
		streams: memory.NewStreamRepository(),
		now:     time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	f.throttles = memory.NewThrottleRepository(func() time.Time { return f.now })
	f.limiter = NewLimiter(
		s,
		f.streams,
		f.throttles,
		testConfig(),
		prometheus.NewNopMetrics(),
		logger,
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func TestLimiter_CheckAndConsume(t *testing.T) {
	f := setupLimiter(t, store.NewMemoryStore())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, info := f.limiter.CheckAndConsume(ctx, "10.1.1.1", 3, 60)
		require.True(t, allowed)
		assert.Equal(t, i, info.CurrentCount)
		assert.Equal(t, 3-i, info.Remaining)
		f.now = f.now.Add(10 * time.Second)
	}

	allowed, info := f.limiter.CheckAndConsume(ctx, "10.1.1.1", 3, 60)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 30, info.RetryAfterSeconds)

	events, err := f.streams.ListEvents(ctx, signal.StreamRateLimitViolation, f.now.Add(-time.Minute), f.now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "10.1.1.1", events[0].OriginAddress)

	f.now = f.now.Add(31 * time.Second)
	allowed, _ = f.limiter.CheckAndConsume(ctx, "10.1.1.1", 3, 60)
	assert.True(t, allowed)
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	f := setupLimiter(t, store.NewMemoryStore())
	ctx := context.Background()

	allowed, _ := f.limiter.CheckAndConsume(ctx, "a", 1, 60)
	require.True(t, allowed)
	allowed, _ = f.limiter.CheckAndConsume(ctx, "a", 1, 60)
	require.False(t, allowed)

	allowed, _ = f.limiter.CheckAndConsume(ctx, "b", 1, 60)
	assert.True(t, allowed)
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	s := new(mockStore)
	s.On("Admit", mock.Anything, "10.2.2.2", 3, time.Minute, mock.Anything).
		Return(store.Decision{}, errors.New("redis: connection refused"))
	f := setupLimiter(t, s)

	for i := 0; i < 10; i++ {
		allowed, info := f.limiter.CheckAndConsume(context.Background(), "10.2.2.2", 3, 60)
		assert.True(t, allowed)
		assert.Equal(t, 3, info.Remaining)
	}
	s.AssertNumberOfCalls(t, "Admit", 10)
}

func TestLimiter_CheckClass(t *testing.T) {
	f := setupLimiter(t, store.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, info := f.limiter.CheckClass(ctx, "10.3.3.3", "login")
		require.True(t, allowed)
		assert.Equal(t, 5, info.Limit)
	}
	allowed, _ := f.limiter.CheckClass(ctx, "10.3.3.3", "login")
	assert.False(t, allowed)

	allowed, info := f.limiter.CheckClass(ctx, "10.3.3.3", "search")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_CheckClassAppliesThrottle(t *testing.T) {
	f := setupLimiter(t, store.NewMemoryStore())
	ctx := context.Background()

	set, err := f.throttles.SetIfAbsent(ctx, "10.4.4.4", time.Hour)
	require.NoError(t, err)
	require.True(t, set)

	allowed, info := f.limiter.CheckClass(ctx, "10.4.4.4", "login")
	require.True(t, allowed)
	assert.True(t, info.Throttled)
	assert.Equal(t, 1, info.Limit)

	allowed, _ = f.limiter.CheckClass(ctx, "10.4.4.4", "login")
	assert.False(t, allowed)

	f.now = f.now.Add(time.Hour + time.Minute)
	allowed, info = f.limiter.CheckClass(ctx, "10.4.4.4", "login")
	assert.True(t, allowed)
	assert.False(t, info.Throttled)
	assert.Equal(t, 5, info.Limit)
}

func TestThrottledLimit(t *testing.T) {
	assert.Equal(t, 20, ThrottledLimit(100, 5))
	assert.Equal(t, 1, ThrottledLimit(3, 5))
	assert.Equal(t, 7, ThrottledLimit(7, 0))
}
