package model

import (
	"encoding/json"
	"time"
)

type WebhookSource string

const (
	WebhookSourcePayment  WebhookSource = "payment"
	WebhookSourceTraining WebhookSource = "training"
)

// WebhookEvent is the idempotency and audit record of one inbound delivery.
type WebhookEvent struct {
	ID              string // UUID
	Source          WebhookSource
	ExternalEventID string
	EventType       string
	Payload         json.RawMessage
	Processed       bool
	ProcessingError *string
	Attempts        int
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}
