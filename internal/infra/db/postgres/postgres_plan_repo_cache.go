package postgres

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	red "ai-image-studio/internal/infra/redis"
)

var _ repository.SubscriptionPlanRepository = (*planRepoCacheDecorator)(nil)

const planListKey = "plans:active"

// planRepoCacheDecorator caches plan lookups in Redis. Every quota check reads
// a plan, while the catalog only changes through Save.
type planRepoCacheDecorator struct {
	inner repository.SubscriptionPlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.SubscriptionPlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.SubscriptionPlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	return readThrough(ctx, d.cache, d.ttl, d.log, "plan", "plan:id:"+id, func() (*model.SubscriptionPlan, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *planRepoCacheDecorator) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	return readThrough(ctx, d.cache, d.ttl, d.log, "plan", "plan:name:"+name, func() (*model.SubscriptionPlan, error) {
		return d.inner.FindByName(ctx, tx, name)
	})
}

func (d *planRepoCacheDecorator) FindByExternalID(ctx context.Context, tx repository.Tx, externalPlanID string) (*model.SubscriptionPlan, error) {
	return readThrough(ctx, d.cache, d.ttl, d.log, "plan", "plan:ext:"+externalPlanID, func() (*model.SubscriptionPlan, error) {
		return d.inner.FindByExternalID(ctx, tx, externalPlanID)
	})
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	return readThrough(ctx, d.cache, d.ttl, d.log, "plan_list", planListKey, func() ([]*model.SubscriptionPlan, error) {
		return d.inner.ListActive(ctx, tx)
	})
}

// Save writes through and drops every key the plan could be cached under.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	keys := []string{"plan:id:" + plan.ID, "plan:name:" + plan.Name, planListKey}
	if plan.ExternalPlanID != nil {
		keys = append(keys, "plan:ext:"+*plan.ExternalPlanID)
	}
	invalidate(ctx, d.cache, d.log, keys...)
	return nil
}
