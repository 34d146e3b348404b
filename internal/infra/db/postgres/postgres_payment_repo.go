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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `
id, user_id, subscription_id, external_payment_id, amount::text, currency, status, payment_method,
failure_reason, refunded_at, created_at, updated_at`

// Upsert keeps the first-seen id, owner and amount; later deliveries only move
// the status fields.
func (r *paymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) (*model.PaymentTransaction, error) {
	const q = `
INSERT INTO payment_transactions (
  id, user_id, subscription_id, external_payment_id, amount, currency, status, payment_method,
  failure_reason, refunded_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (external_payment_id) DO UPDATE SET
  status=EXCLUDED.status,
  subscription_id=COALESCE(payment_transactions.subscription_id, EXCLUDED.subscription_id),
  payment_method=CASE WHEN EXCLUDED.payment_method <> '' THEN EXCLUDED.payment_method ELSE payment_transactions.payment_method END,
  failure_reason=COALESCE(EXCLUDED.failure_reason, payment_transactions.failure_reason),
  refunded_at=COALESCE(EXCLUDED.refunded_at, payment_transactions.refunded_at),
  updated_at=EXCLUDED.updated_at
RETURNING ` + paymentColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, p.ID, p.UserID, p.SubscriptionID, p.ExternalPaymentID, p.Amount.String(),
		p.Currency, p.Status, p.PaymentMethod, p.FailureReason, p.RefundedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, mapError("upsert payment", err)
	}
	stored, err := scanPayment(row)
	if err != nil {
		return nil, mapError("upsert payment", err)
	}
	return stored, nil
}

func (r *paymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalPaymentID string) (*model.PaymentTransaction, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE external_payment_id=$1;`, externalPaymentID)
	if err != nil {
		return nil, mapError("find payment", err)
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapError("find payment", err)
	}
	return p, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.PaymentTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + `
  FROM payment_transactions
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, mapError("list payments", err)
	}
	defer rows.Close()
	var out []*model.PaymentTransaction
	for rows.Next() {
		p, err := scanPayment(rows)
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

func scanPayment(row pgx.Row) (*model.PaymentTransaction, error) {
	var (
		p      model.PaymentTransaction
		amount string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.ExternalPaymentID, &amount, &p.Currency, &p.Status,
		&p.PaymentMethod, &p.FailureReason, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	p.Amount = d
	return &p, nil
}
