package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
id, user_id, plan_id, status, current_period_start, current_period_end, trial_start, trial_end,
external_subscription_id, external_customer_id, cancel_at_period_end, cancelled_at, created_at, updated_at`

// InsertIfAbsent relies on both the external id constraint and the one-trial-per-user
// index, so concurrent creators collapse to a single row.
func (r *subscriptionRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, s *model.Subscription) (bool, error) {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, status, current_period_start, current_period_end, trial_start, trial_end,
  external_subscription_id, external_customer_id, cancel_at_period_end, cancelled_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT DO NOTHING
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.TrialStart, s.TrialEnd,
		s.ExternalSubscriptionID, s.ExternalCustomerID, s.CancelAtPeriodEnd, s.CancelledAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return false, mapError("insert subscription", err)
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapError("insert subscription", err)
	}
	return true, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
UPDATE subscriptions SET
  plan_id=$2, status=$3, current_period_start=$4, current_period_end=$5, trial_start=$6, trial_end=$7,
  external_customer_id=$8, cancel_at_period_end=$9, cancelled_at=$10, updated_at=$11
WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, s.ID, s.PlanID, s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.TrialStart, s.TrialEnd, s.ExternalCustomerID, s.CancelAtPeriodEnd, s.CancelledAt, s.UpdatedAt)
	if err != nil {
		return mapError("update subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("update subscription", pgx.ErrNoRows)
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id=$1;`, id)
}

func (r *subscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalSubscriptionID string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE external_subscription_id=$1;`, externalSubscriptionID)
}

func (r *subscriptionRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1
 ORDER BY (status IN ('active','trialing')) DESC, created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) FindTrialByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id=$1 AND external_subscription_id IS NULL;`, userID)
}

func (r *subscriptionRepo) FindUserIDByCustomerID(ctx context.Context, tx repository.Tx, externalCustomerID string) (string, error) {
	const q = `
SELECT user_id FROM subscriptions
 WHERE external_customer_id=$1
 ORDER BY created_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, externalCustomerID)
	if err != nil {
		return "", mapError("find user by customer", err)
	}
	var userID string
	if err := row.Scan(&userID); err != nil {
		return "", mapError("find user by customer", err)
	}
	return userID, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapError("find subscription", err)
	}
	s, err := scanSub(row)
	if err != nil {
		return nil, mapError("find subscription", err)
	}
	return s, nil
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.TrialStart, &s.TrialEnd, &s.ExternalSubscriptionID, &s.ExternalCustomerID, &s.CancelAtPeriodEnd,
		&s.CancelledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
