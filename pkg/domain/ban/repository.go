package ban

import (
	"context"
	"time"
)

//go:generate mockery --name=Repository --dir=. --output=./mocks --filename=ban_repository_mock.go --case=underscore --with-expecter
type Repository interface {
	// FindActive returns the ban in effect for the key, or nil.
	FindActive(ctx context.Context, subjectType SubjectType, key string, now time.Time) (*Record, error)
	// CreateIfAbsent inserts the record unless an active ban already exists for
	// its (SubjectType, BanKey). It reports whether the record was inserted.
	CreateIfAbsent(ctx context.Context, record *Record) (bool, error)
}
