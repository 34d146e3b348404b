package repository

import (
	"context"

	"ai-image-studio/internal/domain/model"
)

type PaymentRepository interface {
	// Upsert inserts p or, when the external payment id exists, updates its status
	// fields. The stored row is returned.
	Upsert(ctx context.Context, tx Tx, p *model.PaymentTransaction) (*model.PaymentTransaction, error)
	FindByExternalID(ctx context.Context, tx Tx, externalPaymentID string) (*model.PaymentTransaction, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.PaymentTransaction, error)
}
