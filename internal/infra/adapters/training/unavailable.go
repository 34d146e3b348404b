package training

import (
	"context"
	"fmt"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
)

var _ adapter.TrainingProvider = Unavailable{}

// Unavailable rejects every training run. It stands in when no provider token
// is configured so the rest of the API still serves.
type Unavailable struct{}

func (Unavailable) StartTraining(ctx context.Context, req adapter.TrainingRequest) (*adapter.TrainingHandle, error) {
	return nil, fmt.Errorf("training provider not configured: %w", domain.ErrUpstream)
}

func (Unavailable) DeleteModel(ctx context.Context, modelID, version string) error {
	return fmt.Errorf("training provider not configured: %w", domain.ErrUpstream)
}
