package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type banRepository struct {
	db *gorm.DB
}

func NewBanRepository(db *gorm.DB) ban.Repository {
	return &banRepository{
		db: db,
	}
}

func (r *banRepository) FindActive(ctx context.Context, subjectType ban.SubjectType, key string, now time.Time) (*ban.Record, error) {
	record := new(ban.Record)
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND ban_key = ? AND is_active = ?", subjectType, key, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active ban: %w", err)
	}
	return record, nil
}

// CreateIfAbsent retires expired temporary bans for the key and inserts the
// record against the partial unique index on active bans.
func (r *banRepository) CreateIfAbsent(ctx context.Context, record *ban.Record) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ban.Record{}).
			Where("subject_type = ? AND ban_key = ? AND is_active = ?", record.SubjectType, record.BanKey, true).
			Where("expires_at IS NOT NULL AND expires_at <= ?", record.CreatedAt).
			Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "subject_type"}, {Name: "ban_key"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "is_active"}}},
			DoNothing:   true,
		}).Create(record)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create ban %s/%s: %w", record.SubjectType, record.BanKey, err)
	}
	return created, nil
}
