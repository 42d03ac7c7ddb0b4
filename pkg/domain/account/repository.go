package account

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
	// Deactivate flips is_active to false only if it is currently true and
	// reports whether this call made the change.
	Deactivate(ctx context.Context, id int64) (bool, error)
}
