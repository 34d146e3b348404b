package repository

import (
	"context"

	"ai-image-studio/internal/domain/model"
)

// SubscriptionPlanRepository is the port for the plan catalog.
type SubscriptionPlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.SubscriptionPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.SubscriptionPlan, error)
	FindByExternalID(ctx context.Context, tx Tx, externalPlanID string) (*model.SubscriptionPlan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.SubscriptionPlan, error)
}
