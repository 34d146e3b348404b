package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

var _ repository.SubscriptionPlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, name, price::text, currency, billing_cycle, image_limit, model_limit, is_active, external_plan_id, created_at`

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (id, name, price, currency, billing_cycle, image_limit, model_limit, is_active, external_plan_id, created_at)
VALUES ($1,$2,$3::numeric,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=EXCLUDED.name, price=EXCLUDED.price, currency=EXCLUDED.currency, billing_cycle=EXCLUDED.billing_cycle,
  image_limit=EXCLUDED.image_limit, model_limit=EXCLUDED.model_limit, is_active=EXCLUDED.is_active,
  external_plan_id=EXCLUDED.external_plan_id;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price.String(), p.Currency, p.BillingCycle,
		p.ImageLimit, p.ModelLimit, p.IsActive, p.ExternalPlanID, p.CreatedAt)
	return mapError("save plan", err)
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	return r.queryOne(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE id=$1;`, id)
}

func (r *planRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	return r.queryOne(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE name=$1;`, name)
}

func (r *planRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalPlanID string) (*model.SubscriptionPlan, error) {
	return r.queryOne(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE external_plan_id=$1;`, externalPlanID)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE is_active ORDER BY price ASC, name ASC;`)
	if err != nil {
		return nil, mapError("list plans", err)
	}
	defer rows.Close()
	var out []*model.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
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

func (r *planRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.SubscriptionPlan, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapError("find plan", err)
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, mapError("find plan", err)
	}
	return p, nil
}

func scanPlan(row pgx.Row) (*model.SubscriptionPlan, error) {
	var (
		p     model.SubscriptionPlan
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Currency, &p.BillingCycle, &p.ImageLimit, &p.ModelLimit,
		&p.IsActive, &p.ExternalPlanID, &p.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	return &p, nil
}
