package repository

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type findingRepository struct {
	db *gorm.DB
}

func NewFindingRepository(db *gorm.DB) correlation.Repository {
	return &findingRepository{
		db: db,
	}
}

func (r *findingRepository) SaveIfAbsent(ctx context.Context, f *correlation.Finding) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(f)
	if res.Error != nil {
		return false, fmt.Errorf("failed to save finding %s: %w", f.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *findingRepository) ListOpen(ctx context.Context, limit int) ([]correlation.Finding, error) {
	var findings []correlation.Finding
	q := r.db.WithContext(ctx).
		Where("status = ?", correlation.StatusOpen).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&findings).Error; err != nil {
		return nil, fmt.Errorf("failed to list open findings: %w", err)
	}
	return findings, nil
}

func (r *findingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status correlation.Status) error {
	res := r.db.WithContext(ctx).
		Model(&correlation.Finding{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update finding %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("finding", id.String())
	}
	return nil
}
