package signal

import (
	"context"
	"time"
)

//go:generate mockery --name=Repository --dir=. --output=./mocks --filename=signal_repository_mock.go --case=underscore --with-expecter
type Repository interface {
	Append(ctx context.Context, s *ThreatSignal) error
	// CountBySubject counts every qualifying signal ever recorded for the subject.
	CountBySubject(ctx context.Context, subjectID int64) (int64, error)
	// CountUnauthenticatedByOrigin counts signals without a subject from origin since the given time.
	CountUnauthenticatedByOrigin(ctx context.Context, origin string, since time.Time) (int64, error)
}

type StreamRepository interface {
	AppendEvent(ctx context.Context, ev *StreamEvent) error
	ListEvents(ctx context.Context, stream Stream, from, to time.Time) ([]StreamEvent, error)
}
