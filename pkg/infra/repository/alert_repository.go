package repository

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"gorm.io/gorm"
)

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) alert.Repository {
	return &alertRepository{
		db: db,
	}
}

func (r *alertRepository) Save(ctx context.Context, a *alert.Alert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to save alert %s: %w", a.RuleName, err)
	}
	return nil
}
