package memory

import (
	"context"
	"sync"

	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
)

type AlertRepository struct {
	mu     sync.RWMutex
	alerts []alert.Alert
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{}
}

func (r *AlertRepository) Save(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.alerts = append(r.alerts, *a)
	return nil
}

func (r *AlertRepository) All() []alert.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]alert.Alert(nil), r.alerts...)
}
