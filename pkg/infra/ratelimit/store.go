package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission attempt against a sliding window.
type Decision struct {
	Allowed bool
	// Count is the number of entries in the window after the attempt.
	Count      int
	RetryAfter time.Duration
}

// Store evicts expired entries, counts and records in one atomic step per key.
//
//go:generate mockery --name=Store --dir=. --output=./mocks --filename=store_mock.go --case=underscore --with-expecter
type Store interface {
	Admit(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (Decision, error)
}
