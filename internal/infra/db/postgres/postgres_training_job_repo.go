package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
)

var _ repository.TrainingJobRepository = (*trainingJobRepo)(nil)

type trainingJobRepo struct {
	pool *pgxpool.Pool
}

func NewTrainingJobRepo(pool *pgxpool.Pool) *trainingJobRepo {
	return &trainingJobRepo{pool: pool}
}

const trainingJobColumns = `
id, user_id, model_name, gender, source_data_ref, status, external_job_id, model_id, model_version,
progress, error_message, created_at, updated_at, completed_at`

func (r *trainingJobRepo) Save(ctx context.Context, tx repository.Tx, j *model.TrainingJob) error {
	const q = `
INSERT INTO training_jobs (` + trainingJobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status, model_id=EXCLUDED.model_id, model_version=EXCLUDED.model_version,
  progress=EXCLUDED.progress, error_message=EXCLUDED.error_message,
  updated_at=EXCLUDED.updated_at, completed_at=EXCLUDED.completed_at;`
	_, err := execSQL(ctx, r.pool, tx, q, j.ID, j.UserID, j.ModelName, j.Gender, j.SourceDataRef, j.Status,
		j.ExternalJobID, j.ModelID, j.ModelVersion, j.Progress, j.ErrorMessage, j.CreatedAt, j.UpdatedAt, j.CompletedAt)
	return mapError("save training job", err)
}

func (r *trainingJobRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalJobID string) (*model.TrainingJob, error) {
	return r.queryOne(ctx, tx, `SELECT `+trainingJobColumns+` FROM training_jobs WHERE external_job_id=$1;`, externalJobID)
}

func (r *trainingJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.TrainingJob, error) {
	return r.queryOne(ctx, tx, `SELECT `+trainingJobColumns+` FROM training_jobs WHERE id=$1;`, id)
}

func (r *trainingJobRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.TrainingJob, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+trainingJobColumns+` FROM training_jobs WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, mapError("list training jobs", err)
	}
	defer rows.Close()
	var out []*model.TrainingJob
	for rows.Next() {
		j, err := scanTrainingJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *trainingJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM training_jobs WHERE id=$1;`, id)
	if err != nil {
		return mapError("delete training job", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("delete training job", pgx.ErrNoRows)
	}
	return nil
}

func (r *trainingJobRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.TrainingJob, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapError("find training job", err)
	}
	j, err := scanTrainingJob(row)
	if err != nil {
		return nil, mapError("find training job", err)
	}
	return j, nil
}

func scanTrainingJob(row pgx.Row) (*model.TrainingJob, error) {
	var j model.TrainingJob
	if err := row.Scan(&j.ID, &j.UserID, &j.ModelName, &j.Gender, &j.SourceDataRef, &j.Status, &j.ExternalJobID,
		&j.ModelID, &j.ModelVersion, &j.Progress, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt); err != nil {
		return nil, err
	}
	return &j, nil
}
