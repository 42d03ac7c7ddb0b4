package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/app/escalation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrInvalidEvent = errors.New("invalid event")

type Config struct {
	// HighRiskScoreThreshold is the minimum score kept in the high risk stream.
	HighRiskScoreThreshold float64
}

// Event is one raw observation from an upstream detector.
type Event struct {
	SubjectID     *int64    `json:"subject_id,omitempty"`
	OriginAddress string    `json:"origin_address"`
	Score         float64   `json:"score,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

//go:generate mockery --name=Service --dir=. --output=./mocks --filename=ingest_service_mock.go --case=underscore --with-expecter
type Service interface {
	// RecordThreat hands a detected attack to the escalation engine.
	RecordThreat(ctx context.Context, s *signal.ThreatSignal) escalation.Result
	RecordFailedLogin(ctx context.Context, ev Event) error
	// RecordRiskScore keeps the event only when its score reaches the
	// configured threshold and reports whether it was kept.
	RecordRiskScore(ctx context.Context, ev Event) (bool, error)
	RecordRateLimitViolation(ctx context.Context, ev Event) error
}

type service struct {
	evaluator escalation.Evaluator
	streams   signal.StreamRepository
	cfg       Config
	logger    *logrus.Logger
	now       func() time.Time
}

func NewService(
	evaluator escalation.Evaluator,
	streams signal.StreamRepository,
	cfg Config,
	logger *logrus.Logger,
) Service {
	return &service{
		evaluator: evaluator,
		streams:   streams,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *service) RecordThreat(ctx context.Context, ts *signal.ThreatSignal) escalation.Result {
	return s.evaluator.RecordSignalAndEvaluate(ctx, ts)
}

func (s *service) RecordFailedLogin(ctx context.Context, ev Event) error {
	if ev.OriginAddress == "" {
		return fmt.Errorf("%w: failed login requires origin_address", ErrInvalidEvent)
	}
	return s.append(ctx, signal.StreamFailedLogin, ev)
}

func (s *service) RecordRiskScore(ctx context.Context, ev Event) (bool, error) {
	if ev.SubjectID == nil {
		return false, fmt.Errorf("%w: risk score requires subject_id", ErrInvalidEvent)
	}
	if ev.Score < s.cfg.HighRiskScoreThreshold {
		return false, nil
	}
	if err := s.append(ctx, signal.StreamHighRiskScore, ev); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) RecordRateLimitViolation(ctx context.Context, ev Event) error {
	if ev.OriginAddress == "" {
		return fmt.Errorf("%w: rate limit violation requires origin_address", ErrInvalidEvent)
	}
	return s.append(ctx, signal.StreamRateLimitViolation, ev)
}

func (s *service) append(ctx context.Context, stream signal.Stream, ev Event) error {
	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	err := s.streams.AppendEvent(ctx, &signal.StreamEvent{
		ID:            uuid.New(),
		Stream:        stream,
		SubjectID:     ev.SubjectID,
		OriginAddress: ev.OriginAddress,
		Score:         ev.Score,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		s.logger.WithError(err).WithField("stream", stream).Warn("failed to append stream event")
		return fmt.Errorf("failed to append %s event: %w", stream, err)
	}
	return nil
}
