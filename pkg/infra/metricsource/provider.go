package metricsource

import (
	"context"
	"sync"
)

// Provider returns the latest scalar value of every metric it knows.
//
//go:generate mockery --name=Provider --dir=. --output=./mocks --filename=provider_mock.go --case=underscore --with-expecter
type Provider interface {
	Snapshot(ctx context.Context) (map[string]float64, error)
}

// StaticProvider serves values pushed with Set.
type StaticProvider struct {
	mu     sync.RWMutex
	values map[string]float64
}

func NewStaticProvider(initial map[string]float64) *StaticProvider {
	values := make(map[string]float64, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &StaticProvider{values: values}
}

func (p *StaticProvider) Set(key string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

func (p *StaticProvider) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
}

func (p *StaticProvider) Snapshot(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]float64, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out, nil
}
