package repository

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type actionLogRepository struct {
	db *gorm.DB
}

func NewActionLogRepository(db *gorm.DB) response.ActionLogRepository {
	return &actionLogRepository{
		db: db,
	}
}

func (r *actionLogRepository) Append(ctx context.Context, entry *response.ActionLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append %s action log: %w", entry.ActionType, err)
	}
	return nil
}

type blocklistRepository struct {
	db *gorm.DB
}

func NewBlocklistRepository(db *gorm.DB) response.BlocklistRepository {
	return &blocklistRepository{
		db: db,
	}
}

func (r *blocklistRepository) InsertIfAbsent(ctx context.Context, entry *response.BlockedOrigin) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "origin_address"}}, DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to block origin %s: %w", entry.OriginAddress, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *blocklistRepository) IsBlocked(ctx context.Context, origin string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&response.BlockedOrigin{}).
		Where("origin_address = ?", origin).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check blocklist: %w", err)
	}
	return count > 0, nil
}

type flaggedSubjectRepository struct {
	db *gorm.DB
}

func NewFlaggedSubjectRepository(db *gorm.DB) response.FlaggedSubjectRepository {
	return &flaggedSubjectRepository{
		db: db,
	}
}

func (r *flaggedSubjectRepository) InsertIfAbsent(ctx context.Context, entry *response.FlaggedSubject) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "subject_id"}}, DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to flag subject %d: %w", entry.SubjectID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *flaggedSubjectRepository) IsFlagged(ctx context.Context, subjectID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&response.FlaggedSubject{}).
		Where("subject_id = ?", subjectID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check flagged subjects: %w", err)
	}
	return count > 0, nil
}
