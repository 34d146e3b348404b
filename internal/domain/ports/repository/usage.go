package repository

import (
	"context"
	"time"

	"ai-image-studio/internal/domain/model"
)

type UsagePeriodRepository interface {
	// InsertIfAbsent inserts p unless a row for (subscription, start, end) exists,
	// and returns the stored row either way.
	InsertIfAbsent(ctx context.Context, tx Tx, p *model.UsagePeriod) (*model.UsagePeriod, error)
	FindCurrent(ctx context.Context, tx Tx, subscriptionID string, start, end time.Time) (*model.UsagePeriod, error)
	// Increment atomically bumps the counter of action by one and returns the row.
	Increment(ctx context.Context, tx Tx, periodID string, action model.UsageAction) (*model.UsagePeriod, error)
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.UsagePeriod, error)
}
