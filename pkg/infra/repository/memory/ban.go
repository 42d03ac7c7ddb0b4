package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
)

type BanRepository struct {
	mu      sync.RWMutex
	records []ban.Record
}

func NewBanRepository() *BanRepository {
	return &BanRepository{}
}

func (r *BanRepository) FindActive(_ context.Context, subjectType ban.SubjectType, key string, now time.Time) (*ban.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.records {
		rec := r.records[i]
		if rec.SubjectType == subjectType && rec.BanKey == key && rec.InEffect(now) {
			return &rec, nil
		}
	}
	return nil, nil
}

func (r *BanRepository) CreateIfAbsent(_ context.Context, record *ban.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		rec := &r.records[i]
		if rec.SubjectType != record.SubjectType || rec.BanKey != record.BanKey || !rec.IsActive {
			continue
		}
		if rec.InEffect(record.CreatedAt) {
			return false, nil
		}
		rec.IsActive = false
	}
	r.records = append(r.records, *record)
	return true, nil
}

func (r *BanRepository) All() []ban.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ban.Record(nil), r.records...)
}
