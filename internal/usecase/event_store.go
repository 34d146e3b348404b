package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

// EventStore is the idempotency log of inbound webhook deliveries.
type EventStore struct {
	events repository.WebhookEventRepository
}

func NewEventStore(events repository.WebhookEventRepository) *EventStore {
	return &EventStore{events: events}
}

// RecordIfNew stores the delivery unless its event id was seen before. A
// concurrent duplicate gets isNew=false and the winner's record, never an error.
func (s *EventStore) RecordIfNew(ctx context.Context, source model.WebhookSource, eventID, eventType string, payload []byte) (bool, *model.WebhookEvent, error) {
	if eventID == "" {
		return false, nil, domain.ErrInvalidArgument
	}
	ev := &model.WebhookEvent{
		ID:              uuid.NewString(),
		Source:          source,
		ExternalEventID: eventID,
		EventType:       eventType,
		Payload:         json.RawMessage(payload),
		ReceivedAt:      time.Now().UTC(),
	}
	return s.events.InsertIfAbsent(ctx, repository.NoTX, ev)
}

func (s *EventStore) MarkProcessed(ctx context.Context, eventID string) error {
	return s.events.MarkProcessed(ctx, repository.NoTX, eventID)
}

func (s *EventStore) MarkFailed(ctx context.Context, eventID, errText string) error {
	return s.events.MarkFailed(ctx, repository.NoTX, eventID, errText)
}
