package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
)

type SignalRepository struct {
	mu      sync.RWMutex
	signals []signal.ThreatSignal
}

func NewSignalRepository() *SignalRepository {
	return &SignalRepository{}
}

func (r *SignalRepository) Append(_ context.Context, s *signal.ThreatSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, *s)
	return nil
}

func (r *SignalRepository) CountBySubject(_ context.Context, subjectID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.signals {
		if s.SubjectID != nil && *s.SubjectID == subjectID {
			n++
		}
	}
	return n, nil
}

func (r *SignalRepository) CountUnauthenticatedByOrigin(_ context.Context, origin string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.signals {
		if s.SubjectID == nil && s.OriginAddress == origin && !s.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *SignalRepository) All() []signal.ThreatSignal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]signal.ThreatSignal(nil), r.signals...)
}

type StreamRepository struct {
	mu     sync.RWMutex
	events []signal.StreamEvent
}

func NewStreamRepository() *StreamRepository {
	return &StreamRepository{}
}

func (r *StreamRepository) AppendEvent(_ context.Context, ev *signal.StreamEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *StreamRepository) ListEvents(_ context.Context, stream signal.Stream, from, to time.Time) ([]signal.StreamEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []signal.StreamEvent
	for _, ev := range r.events {
		if ev.Stream != stream || ev.OccurredAt.Before(from) || ev.OccurredAt.After(to) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
