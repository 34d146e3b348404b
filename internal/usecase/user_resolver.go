package usecase

import (
	"context"
	"errors"
	"strings"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

// UserResolver finds the local user a provider event belongs to: first by email,
// then by an external customer id stored on one of the user's subscriptions.
type UserResolver struct {
	users repository.UserRepository
	subs  repository.SubscriptionRepository
}

func NewUserResolver(users repository.UserRepository, subs repository.SubscriptionRepository) *UserResolver {
	return &UserResolver{users: users, subs: subs}
}

func (r *UserResolver) Resolve(ctx context.Context, tx repository.Tx, email, customerID string) (*model.User, error) {
	if strings.TrimSpace(email) != "" {
		u, err := r.users.FindByEmail(ctx, tx, email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if customerID != "" {
		userID, err := r.subs.FindUserIDByCustomerID(ctx, tx, customerID)
		if err == nil {
			return r.users.FindByID(ctx, tx, userID)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrUserUnresolved
}
