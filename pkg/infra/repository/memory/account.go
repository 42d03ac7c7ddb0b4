package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/NeuralTrust/TrustShield/pkg/domain/account"
)

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[int64]account.Account
}

func NewAccountRepository(seed ...account.Account) *AccountRepository {
	r := &AccountRepository{accounts: make(map[int64]account.Account, len(seed))}
	for _, a := range seed {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *AccountRepository) Put(a account.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

func (r *AccountRepository) GetByID(_ context.Context, id int64) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", account.ErrAccountNotFound, id)
	}
	return &a, nil
}

func (r *AccountRepository) Deactivate(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || !a.IsActive {
		return false, nil
	}
	a.IsActive = false
	r.accounts[id] = a
	return true, nil
}
