package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
)

type ActionLogRepository struct {
	mu      sync.RWMutex
	entries []response.ActionLog
}

func NewActionLogRepository() *ActionLogRepository {
	return &ActionLogRepository{}
}

func (r *ActionLogRepository) Append(_ context.Context, entry *response.ActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *ActionLogRepository) All() []response.ActionLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]response.ActionLog(nil), r.entries...)
}

type BlocklistRepository struct {
	mu      sync.RWMutex
	entries map[string]response.BlockedOrigin
}

func NewBlocklistRepository() *BlocklistRepository {
	return &BlocklistRepository{entries: make(map[string]response.BlockedOrigin)}
}

func (r *BlocklistRepository) InsertIfAbsent(_ context.Context, entry *response.BlockedOrigin) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.OriginAddress]; ok {
		return false, nil
	}
	r.entries[entry.OriginAddress] = *entry
	return true, nil
}

func (r *BlocklistRepository) IsBlocked(_ context.Context, origin string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[origin]
	return ok, nil
}

func (r *BlocklistRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

type FlaggedSubjectRepository struct {
	mu      sync.RWMutex
	entries map[int64]response.FlaggedSubject
}

func NewFlaggedSubjectRepository() *FlaggedSubjectRepository {
	return &FlaggedSubjectRepository{entries: make(map[int64]response.FlaggedSubject)}
}

func (r *FlaggedSubjectRepository) InsertIfAbsent(_ context.Context, entry *response.FlaggedSubject) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.SubjectID]; ok {
		return false, nil
	}
	r.entries[entry.SubjectID] = *entry
	return true, nil
}

func (r *FlaggedSubjectRepository) IsFlagged(_ context.Context, subjectID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[subjectID]
	return ok, nil
}

func (r *FlaggedSubjectRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

type ThrottleRepository struct {
	mu    sync.Mutex
	flags map[string]time.Time
	now   func() time.Time
}

func NewThrottleRepository(now func() time.Time) *ThrottleRepository {
	if now == nil {
		now = time.Now
	}
	return &ThrottleRepository{flags: make(map[string]time.Time), now: now}
}

func (r *ThrottleRepository) SetIfAbsent(_ context.Context, identifier string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if exp, ok := r.flags[identifier]; ok && now.Before(exp) {
		return false, nil
	}
	r.flags[identifier] = now.Add(ttl)
	return true, nil
}

func (r *ThrottleRepository) IsThrottled(_ context.Context, identifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.flags[identifier]
	if !ok {
		return false, nil
	}
	if !r.now().Before(exp) {
		delete(r.flags, identifier)
		return false, nil
	}
	return true, nil
}
