package repository

import (
	"context"

	"ai-image-studio/internal/domain/model"
)

type UserRepository interface {
	// Save inserts the user or updates its profile fields.
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByExternalAuthID(ctx context.Context, tx Tx, externalAuthID string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
}
