package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/infra/keylock"
)

const memorySweepInterval = time.Minute

type memoryWindow struct {
	entries []time.Time
	newest  time.Time
	span    time.Duration
}

type memoryStore struct {
	locks     *keylock.Locker
	mu        sync.Mutex
	windows   map[string]memoryWindow
	lastSweep time.Time
}

// NewMemoryStore keeps windows in process memory. Suitable for a single instance.
// Windows whose newest entry has aged out are swept at most once a minute.
func NewMemoryStore() Store {
	return &memoryStore{
		locks:   keylock.New(),
		windows: make(map[string]memoryWindow),
	}
}

func (s *memoryStore) Admit(
	_ context.Context,
	identifier string,
	limit int,
	window time.Duration,
	now time.Time,
) (Decision, error) {
	unlock := s.locks.Lock(identifier)
	defer unlock()

	s.mu.Lock()
	entries := s.windows[identifier].entries
	s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := make([]time.Time, 0, len(entries)+1)
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	var d Decision
	if len(kept) >= limit {
		d = Decision{Allowed: false, Count: len(kept), RetryAfter: kept[0].Add(window).Sub(now)}
	} else {
		kept = append(kept, now)
		d = Decision{Allowed: true, Count: len(kept)}
	}

	s.mu.Lock()
	if len(kept) == 0 {
		delete(s.windows, identifier)
	} else {
		s.windows[identifier] = memoryWindow{entries: kept, newest: kept[len(kept)-1], span: window}
	}
	if now.Sub(s.lastSweep) >= memorySweepInterval {
		s.sweepLocked(now)
	}
	s.mu.Unlock()
	return d, nil
}

// sweepLocked drops every window with no entry left inside its span. Callers hold s.mu.
func (s *memoryStore) sweepLocked(now time.Time) {
	for id, w := range s.windows {
		if !w.newest.After(now.Add(-w.span)) {
			delete(s.windows, id)
		}
	}
	s.lastSweep = now
}
