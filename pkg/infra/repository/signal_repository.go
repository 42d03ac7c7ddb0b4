package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"gorm.io/gorm"
)

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) signal.Repository {
	return &signalRepository{
		db: db,
	}
}

func (r *signalRepository) Append(ctx context.Context, s *signal.ThreatSignal) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to append threat signal: %w", err)
	}
	return nil
}

func (r *signalRepository) CountBySubject(ctx context.Context, subjectID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&signal.ThreatSignal{}).
		Where("subject_id = ?", subjectID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count subject signals: %w", err)
	}
	return count, nil
}

func (r *signalRepository) CountUnauthenticatedByOrigin(ctx context.Context, origin string, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&signal.ThreatSignal{}).
		Where("subject_id IS NULL AND origin_address = ? AND occurred_at >= ?", origin, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count origin signals: %w", err)
	}
	return count, nil
}

type streamRepository struct {
	db *gorm.DB
}

func NewStreamRepository(db *gorm.DB) signal.StreamRepository {
	return &streamRepository{
		db: db,
	}
}

func (r *streamRepository) AppendEvent(ctx context.Context, ev *signal.StreamEvent) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("failed to append %s event: %w", ev.Stream, err)
	}
	return nil
}

func (r *streamRepository) ListEvents(ctx context.Context, stream signal.Stream, from, to time.Time) ([]signal.StreamEvent, error) {
	var events []signal.StreamEvent
	if err := r.db.WithContext(ctx).
		Where("stream = ? AND occurred_at >= ? AND occurred_at <= ?", stream, from, to).
		Order("occurred_at ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", stream, err)
	}
	return events, nil
}
