package repository

import (
	"context"

	"ai-image-studio/internal/domain/model"
)

type WebhookEventRepository interface {
	// InsertIfAbsent records e unless its external event id exists. The stored
	// row is returned together with whether this call created it.
	InsertIfAbsent(ctx context.Context, tx Tx, e *model.WebhookEvent) (bool, *model.WebhookEvent, error)
	FindByExternalID(ctx context.Context, tx Tx, externalEventID string) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, tx Tx, externalEventID string) error
	MarkFailed(ctx context.Context, tx Tx, externalEventID, errText string) error
}
