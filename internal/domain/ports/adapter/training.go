package adapter

import "context"

type TrainingRequest struct {
	// InputURL points at the uploaded training archive.
	InputURL    string
	TriggerWord string
	Destination string
	WebhookURL  string
}

type TrainingHandle struct {
	ExternalJobID string
	Status        string
}

// TrainingProvider starts model training runs; results arrive later by webhook.
type TrainingProvider interface {
	StartTraining(ctx context.Context, req TrainingRequest) (*TrainingHandle, error)
	// DeleteModel removes one trained version of a model from the provider.
	DeleteModel(ctx context.Context, modelID, version string) error
}
