package postgres

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	red "ai-image-studio/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches users by id and by identity-provider subject,
// the lookup every authenticated request makes. Email lookups are not cached
// because an email change would leave the old key pointing at the user.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func userIDKey(id string) string { return "user:id:" + id }

func userAuthKey(sub string) string { return "user:auth:" + sub }

func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if err := d.inner.Save(ctx, tx, u); err != nil {
		return err
	}
	invalidate(ctx, d.cache, d.log, userIDKey(u.ID), userAuthKey(u.ExternalAuthID))
	return nil
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return readThrough(ctx, d.cache, d.ttl, d.log, "user", userIDKey(id), func() (*model.User, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *userRepoCacheDecorator) FindByExternalAuthID(ctx context.Context, tx repository.Tx, externalAuthID string) (*model.User, error) {
	return readThrough(ctx, d.cache, d.ttl, d.log, "user", userAuthKey(externalAuthID), func() (*model.User, error) {
		return d.inner.FindByExternalAuthID(ctx, tx, externalAuthID)
	})
}

func (d *userRepoCacheDecorator) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return d.inner.FindByEmail(ctx, tx, email)
}
