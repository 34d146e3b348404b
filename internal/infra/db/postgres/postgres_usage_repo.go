package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

var _ repository.UsagePeriodRepository = (*usageRepo)(nil)

type usageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *usageRepo {
	return &usageRepo{pool: pool}
}

const usageColumns = `
id, subscription_id, user_id, period_start, period_end, images_generated, models_trained,
image_limit, model_limit, created_at, updated_at`

func (r *usageRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, p *model.UsagePeriod) (*model.UsagePeriod, error) {
	const q = `
INSERT INTO usage_periods (` + usageColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (subscription_id, period_start, period_end) DO NOTHING
RETURNING ` + usageColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, p.ID, p.SubscriptionID, p.UserID, p.PeriodStart, p.PeriodEnd,
		p.ImagesGenerated, p.ModelsTrained, p.ImageLimit, p.ModelLimit, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, mapError("insert usage period", err)
	}
	stored, err := scanUsage(row)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError("insert usage period", err)
	}
	// Another writer created the period first; use theirs.
	return r.FindCurrent(ctx, tx, p.SubscriptionID, p.PeriodStart, p.PeriodEnd)
}

func (r *usageRepo) FindCurrent(ctx context.Context, tx repository.Tx, subscriptionID string, start, end time.Time) (*model.UsagePeriod, error) {
	const q = `SELECT ` + usageColumns + `
  FROM usage_periods
 WHERE subscription_id=$1 AND period_start=$2 AND period_end=$3;`
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, start, end)
	if err != nil {
		return nil, mapError("find usage period", err)
	}
	p, err := scanUsage(row)
	if err != nil {
		return nil, mapError("find usage period", err)
	}
	return p, nil
}

func (r *usageRepo) Increment(ctx context.Context, tx repository.Tx, periodID string, action model.UsageAction) (*model.UsagePeriod, error) {
	var column string
	switch action {
	case model.ActionGenerateImage:
		column = "images_generated"
	case model.ActionTrainModel:
		column = "models_trained"
	default:
		return nil, fmt.Errorf("%w: usage action %q", domain.ErrInvalidArgument, action)
	}
	q := `
UPDATE usage_periods SET ` + column + ` = ` + column + ` + 1, updated_at = NOW()
 WHERE id=$1
RETURNING ` + usageColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, periodID)
	if err != nil {
		return nil, mapError("increment usage", err)
	}
	p, err := scanUsage(row)
	if err != nil {
		return nil, mapError("increment usage", err)
	}
	return p, nil
}

func (r *usageRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.UsagePeriod, error) {
	const q = `SELECT ` + usageColumns + `
  FROM usage_periods
 WHERE subscription_id=$1
 ORDER BY period_start ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, mapError("list usage periods", err)
	}
	defer rows.Close()
	var out []*model.UsagePeriod
	for rows.Next() {
		p, err := scanUsage(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanUsage(row pgx.Row) (*model.UsagePeriod, error) {
	var p model.UsagePeriod
	if err := row.Scan(&p.ID, &p.SubscriptionID, &p.UserID, &p.PeriodStart, &p.PeriodEnd, &p.ImagesGenerated,
		&p.ModelsTrained, &p.ImageLimit, &p.ModelLimit, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
