package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	"ai-image-studio/internal/infra/logging"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase maps identity-provider subjects onto local users.
type UserUseCase interface {
	// EnsureFromClaims returns the user for externalAuthID, creating it on first sign-in.
	EnsureFromClaims(ctx context.Context, externalAuthID, email, displayName string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, log: logger}
}

func (u *userUC) EnsureFromClaims(ctx context.Context, externalAuthID, email, displayName string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.EnsureFromClaims")()

	usr, err := u.users.FindByExternalAuthID(ctx, repository.NoTX, externalAuthID)
	switch {
	case err == nil:
		if usr.UpdateProfile(email, displayName) {
			if err := u.users.Save(ctx, repository.NoTX, usr); err != nil {
				u.log.Error().Err(err).Str("user_id", usr.ID).Msg("failed to update user profile")
				return nil, err
			}
		}
		return usr, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	nu, err := model.NewUser(uuid.NewString(), externalAuthID, email, displayName)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, repository.NoTX, nu); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// a concurrent first request created it
			return u.users.FindByExternalAuthID(ctx, repository.NoTX, externalAuthID)
		}
		return nil, err
	}
	u.log.Info().Str("user_id", nu.ID).Msg("user created on first sign-in")
	return nu, nil
}

func (u *userUC) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.users.FindByID(ctx, repository.NoTX, id)
}
