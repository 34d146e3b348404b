package repository

import (
	"context"

	"ai-image-studio/internal/domain/model"
)

type SubscriptionRepository interface {
	// InsertIfAbsent inserts s unless a row with the same external subscription id
	// exists. It reports whether this call created the row.
	InsertIfAbsent(ctx context.Context, tx Tx, s *model.Subscription) (bool, error)
	Update(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByExternalID(ctx context.Context, tx Tx, externalSubscriptionID string) (*model.Subscription, error)
	// FindLatestByUser returns the most recently created subscription of the user.
	FindLatestByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// FindTrialByUser returns the user's provisioned subscription, the one without an external id.
	FindTrialByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// FindUserIDByCustomerID resolves a user through a stored external customer id.
	FindUserIDByCustomerID(ctx context.Context, tx Tx, externalCustomerID string) (string, error)
}
