package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/google/uuid"
)

type FindingRepository struct {
	mu       sync.RWMutex
	findings map[uuid.UUID]correlation.Finding
}

func NewFindingRepository() *FindingRepository {
	return &FindingRepository{findings: make(map[uuid.UUID]correlation.Finding)}
}

func (r *FindingRepository) SaveIfAbsent(_ context.Context, f *correlation.Finding) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.findings[f.ID]; ok {
		return false, nil
	}
	r.findings[f.ID] = *f
	return true, nil
}

func (r *FindingRepository) ListOpen(_ context.Context, limit int) ([]correlation.Finding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]correlation.Finding, 0)
	for _, f := range r.findings {
		if f.Status == correlation.StatusOpen {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FindingRepository) UpdateStatus(_ context.Context, id uuid.UUID, status correlation.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.findings[id]
	if !ok {
		return domain.NewNotFoundError("finding", id.String())
	}
	f.Status = status
	r.findings[id] = f
	return nil
}

func (r *FindingRepository) Get(id uuid.UUID) (correlation.Finding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.findings[id]
	return f, ok
}

func (r *FindingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.findings)
}
