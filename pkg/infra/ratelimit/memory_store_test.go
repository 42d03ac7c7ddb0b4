package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SlidingWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		d, err := store.Admit(ctx, "k", 3, time.Minute, start.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i+1, d.Count)
	}

	d, err := store.Admit(ctx, "k", 3, time.Minute, start.Add(10*time.Second))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 50*time.Second, d.RetryAfter)

	d, err = store.Admit(ctx, "k", 3, time.Minute, start.Add(time.Minute+time.Millisecond))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryStore_NeverExceedsLimitInAnyWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)
	window := 10 * time.Second
	limit := 4

	var accepted []time.Time
	for i := 0; i < 200; i++ {
		now := start.Add(time.Duration(i*700) * time.Millisecond)
		d, err := store.Admit(ctx, "k", limit, window, now)
		require.NoError(t, err)
		if d.Allowed {
			accepted = append(accepted, now)
		}
	}

	for i := range accepted {
		inWindow := 0
		for j := i; j < len(accepted) && accepted[j].Sub(accepted[i]) < window; j++ {
			inWindow++
		}
		assert.LessOrEqual(t, inWindow, limit)
	}
}

func TestMemoryStore_ConcurrentSameKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := store.Admit(ctx, "shared", 10, time.Minute, now)
			if d.Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), allowed)
}

func TestMemoryStore_SweepsIdleWindows(t *testing.T) {
	store := NewMemoryStore().(*memoryStore)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	for i := 0; i < 1000; i++ {
		_, err := store.Admit(ctx, fmt.Sprintf("198.51.100.%d", i), 5, time.Minute, start)
		require.NoError(t, err)
	}
	_, err := store.Admit(ctx, "active", 5, time.Hour, start)
	require.NoError(t, err)

	d, err := store.Admit(ctx, "late", 5, time.Minute, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.windows, 1)
	assert.Contains(t, store.windows, "late")
}

func TestMemoryStore_SweepKeepsLiveWindows(t *testing.T) {
	store := NewMemoryStore().(*memoryStore)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	_, err := store.Admit(ctx, "long", 1, time.Hour, start)
	require.NoError(t, err)
	_, err = store.Admit(ctx, "short", 1, time.Minute, start)
	require.NoError(t, err)

	_, err = store.Admit(ctx, "tick", 1, time.Minute, start.Add(2*time.Minute))
	require.NoError(t, err)

	store.mu.Lock()
	assert.Contains(t, store.windows, "long")
	assert.NotContains(t, store.windows, "short")
	store.mu.Unlock()

	d, err := store.Admit(ctx, "long", 1, time.Hour, start.Add(3*time.Minute))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
