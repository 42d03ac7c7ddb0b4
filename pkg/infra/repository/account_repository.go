package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/domain/account"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) account.Repository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	entity := new(account.Account)
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", account.ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return entity, nil
}

func (r *accountRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&account.Account{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to deactivate account %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
