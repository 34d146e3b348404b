package repository

import (
	"context"

	"ai-image-studio/internal/domain/model"
)

type TrainingJobRepository interface {
	Save(ctx context.Context, tx Tx, j *model.TrainingJob) error
	FindByExternalID(ctx context.Context, tx Tx, externalJobID string) (*model.TrainingJob, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.TrainingJob, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.TrainingJob, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
