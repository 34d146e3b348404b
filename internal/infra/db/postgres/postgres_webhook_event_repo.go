package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

const webhookEventColumns = `
id, source, external_event_id, event_type, payload, processed, processing_error, attempts, received_at, processed_at`

func (r *webhookEventRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) (bool, *model.WebhookEvent, error) {
	const q = `
INSERT INTO webhook_events (id, source, external_event_id, event_type, payload, received_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (external_event_id) DO NOTHING
RETURNING ` + webhookEventColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, e.ID, e.Source, e.ExternalEventID, e.EventType, []byte(e.Payload), e.ReceivedAt)
	if err != nil {
		return false, nil, mapError("insert webhook event", err)
	}
	stored, err := scanWebhookEvent(row)
	if err == nil {
		return true, stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, nil, mapError("insert webhook event", err)
	}
	existing, err := r.FindByExternalID(ctx, tx, e.ExternalEventID)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (r *webhookEventRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalEventID string) (*model.WebhookEvent, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+webhookEventColumns+` FROM webhook_events WHERE external_event_id=$1;`, externalEventID)
	if err != nil {
		return nil, mapError("find webhook event", err)
	}
	e, err := scanWebhookEvent(row)
	if err != nil {
		return nil, mapError("find webhook event", err)
	}
	return e, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, externalEventID string) error {
	const q = `
UPDATE webhook_events
   SET processed=TRUE, processing_error=NULL, attempts=attempts+1, processed_at=NOW()
 WHERE external_event_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, externalEventID)
	if err != nil {
		return mapError("mark webhook processed", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("mark webhook processed", pgx.ErrNoRows)
	}
	return nil
}

func (r *webhookEventRepo) MarkFailed(ctx context.Context, tx repository.Tx, externalEventID, errText string) error {
	const q = `
UPDATE webhook_events
   SET processed=FALSE, processing_error=$2, attempts=attempts+1
 WHERE external_event_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, externalEventID, errText)
	if err != nil {
		return mapError("mark webhook failed", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("mark webhook failed", pgx.ErrNoRows)
	}
	return nil
}

func scanWebhookEvent(row pgx.Row) (*model.WebhookEvent, error) {
	var (
		e       model.WebhookEvent
		payload []byte
	)
	if err := row.Scan(&e.ID, &e.Source, &e.ExternalEventID, &e.EventType, &payload, &e.Processed,
		&e.ProcessingError, &e.Attempts, &e.ReceivedAt, &e.ProcessedAt); err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
