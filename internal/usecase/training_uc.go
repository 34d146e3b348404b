package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/domain/ports/repository"
	"ai-image-studio/internal/infra/adapters/storage"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
	"ai-image-studio/internal/infra/retry"
)

// Compile-time check
var _ TrainingUseCase = (*trainingUC)(nil)

const triggerWord = "TOK"

// SubmitTrainingInput is one uploaded training archive.
type SubmitTrainingInput struct {
	ModelName   string
	Gender      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// TrainingUseCase submits training runs and folds provider callbacks into TrainingJobs.
type TrainingUseCase interface {
	ApplyCallback(ctx context.Context, cb model.TrainingCallback, hints TrainingHints) (*model.TrainingJob, error)
	Submit(ctx context.Context, userID string, in SubmitTrainingInput) (*model.TrainingJob, error)
	ListJobs(ctx context.Context, userID string) ([]*model.TrainingJob, error)
	Delete(ctx context.Context, userID, jobID string) (*model.TrainingJob, error)
}

type trainingUC struct {
	jobs          repository.TrainingJobRepository
	users         repository.UserRepository
	usage         UsageUseCase
	provider      adapter.TrainingProvider
	blobs         adapter.BlobStore
	notifier      adapter.Notifier
	alerter       adapter.OpsAlerter
	publicBaseURL string
	uploadPolicy  retry.Policy
	log           *zerolog.Logger
}

func NewTrainingUseCase(
	jobs repository.TrainingJobRepository,
	users repository.UserRepository,
	usage UsageUseCase,
	provider adapter.TrainingProvider,
	blobs adapter.BlobStore,
	notifier adapter.Notifier,
	alerter adapter.OpsAlerter,
	publicBaseURL string,
	uploadPolicy retry.Policy,
	logger *zerolog.Logger,
) *trainingUC {
	return &trainingUC{
		jobs:          jobs,
		users:         users,
		usage:         usage,
		provider:      provider,
		blobs:         blobs,
		notifier:      notifier,
		alerter:       alerter,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		uploadPolicy:  uploadPolicy,
		log:           logger,
	}
}

func (t *trainingUC) ApplyCallback(ctx context.Context, cb model.TrainingCallback, hints TrainingHints) (*model.TrainingJob, error) {
	defer logging.TraceDuration(t.log, "TrainingUC.ApplyCallback")()
	log := logging.With(ctx, t.log)

	job, err := t.jobs.FindByExternalID(ctx, repository.NoTX, cb.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("external job %q: %w", cb.ID, domain.ErrTrainingJobNotFound)
		}
		return nil, err
	}
	if hints.UserID != "" && hints.UserID != job.UserID {
		log.Warn().Str("job_id", job.ID).Str("hint_user_id", hints.UserID).Msg("training callback user hint does not match job owner")
	}

	now := time.Now().UTC()
	prev := job.Status
	update := cb.ToUpdate(now)
	applied := model.ApplyTrainingUpdate(job, update, now)
	metrics.IncTrainingTransition(string(job.Status), applied)
	if !applied {
		log.Info().Str("job_id", job.ID).Str("incoming", cb.Status).Str("status", string(job.Status)).
			Msg("training callback ignored")
		return job, nil
	}
	if err := t.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}

	if !prev.IsTerminal() && job.Status.IsTerminal() {
		t.notifyOutcome(ctx, job)
	}
	return job, nil
}

func (t *trainingUC) notifyOutcome(ctx context.Context, job *model.TrainingJob) {
	log := logging.With(ctx, t.log)
	var n adapter.Notification
	switch job.Status {
	case model.TrainingStatusCompleted:
		n = adapter.Notification{
			Subject: fmt.Sprintf("Your model %q is ready", job.ModelName),
			Body:    fmt.Sprintf("Training of %q finished. You can now generate images with it.", job.ModelName),
		}
	case model.TrainingStatusFailed:
		n = adapter.Notification{
			Subject: fmt.Sprintf("Training of %q failed", job.ModelName),
			Body:    fmt.Sprintf("Training of %q did not finish: %s", job.ModelName, job.ErrorMessage),
		}
		if err := t.alerter.Alert(ctx, fmt.Sprintf("training job %s (%s) failed: %s", job.ID, job.ExternalJobID, job.ErrorMessage)); err != nil {
			log.Warn().Err(err).Msg("ops alert not queued")
		}
	default:
		return
	}

	user, err := t.users.FindByID(ctx, repository.NoTX, job.UserID)
	if err != nil || user.Email == "" {
		log.Warn().Err(err).Str("user_id", job.UserID).Msg("no email for training notification")
		return
	}
	if err := t.notifier.Notify(ctx, user.Email, n); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("training notification not queued")
	}
}

func (t *trainingUC) Submit(ctx context.Context, userID string, in SubmitTrainingInput) (*model.TrainingJob, error) {
	defer logging.TraceDuration(t.log, "TrainingUC.Submit")()
	log := logging.With(ctx, t.log)

	if strings.TrimSpace(in.ModelName) == "" || in.Body == nil {
		return nil, fmt.Errorf("%w: model name and training archive are required", domain.ErrInvalidArgument)
	}
	if !strings.HasSuffix(strings.ToLower(in.FileName), ".zip") {
		return nil, fmt.Errorf("%w: training data must be a ZIP file", domain.ErrInvalidArgument)
	}

	d, err := t.usage.CheckQuota(ctx, userID, model.ActionTrainModel)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		metrics.IncTrainingSubmission("denied")
		return nil, &QuotaError{Decision: d}
	}

	now := time.Now().UTC()
	jobID := uuid.NewString()
	key := storage.ObjectKey("training-data", in.FileName, now)
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/zip"
	}
	archiveURL, err := retry.DoValue(ctx, t.uploadPolicy, func(ctx context.Context) (string, error) {
		if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
			return "", err
		}
		return t.blobs.Put(ctx, key, in.Body, in.Size, contentType)
	})
	if err != nil {
		metrics.IncTrainingSubmission("upload_failed")
		log.Error().Err(err).Str("key", key).Msg("training archive upload failed")
		return nil, fmt.Errorf("upload training archive: %w: %w", domain.ErrUpstream, err)
	}

	handle, err := t.provider.StartTraining(ctx, adapter.TrainingRequest{
		InputURL:    archiveURL,
		TriggerWord: triggerWord,
		WebhookURL:  t.webhookURL(userID, jobID, in.FileName),
	})
	if err != nil {
		metrics.IncTrainingSubmission("provider_failed")
		log.Error().Err(err).Msg("start training failed")
		return nil, err
	}

	job, err := model.NewTrainingJob(jobID, userID, in.ModelName, in.Gender, archiveURL, handle.ExternalJobID)
	if err != nil {
		return nil, err
	}
	if err := t.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	metrics.IncTrainingSubmission("ok")
	t.usage.TryIncrement(ctx, userID, model.ActionTrainModel)
	log.Info().Str("job_id", job.ID).Str("external_job_id", job.ExternalJobID).Msg("training submitted")
	return job, nil
}

func (t *trainingUC) webhookURL(userID, modelID, fileName string) string {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("modelId", modelID)
	q.Set("fileName", fileName)
	return t.publicBaseURL + "/webhook/training?" + q.Encode()
}

func (t *trainingUC) ListJobs(ctx context.Context, userID string) ([]*model.TrainingJob, error) {
	return t.jobs.ListByUser(ctx, repository.NoTX, userID)
}

// Delete removes one of the user's training jobs. A trained version is removed
// from the provider first; a provider failure is logged and the row is still
// deleted. Jobs of other users are reported as not found.
func (t *trainingUC) Delete(ctx context.Context, userID, jobID string) (*model.TrainingJob, error) {
	defer logging.TraceDuration(t.log, "TrainingUC.Delete")()
	log := logging.With(ctx, t.log)

	job, err := t.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil || job.UserID != userID {
		return nil, fmt.Errorf("job %q: %w", jobID, domain.ErrTrainingJobNotFound)
	}

	if job.ModelID != "" && job.ModelVersion != "" {
		if err := t.provider.DeleteModel(ctx, job.ModelID, job.ModelVersion); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Str("model_id", job.ModelID).Msg("provider model not deleted")
		}
	}
	if err := t.jobs.Delete(ctx, repository.NoTX, job.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("job %q: %w", jobID, domain.ErrTrainingJobNotFound)
		}
		return nil, err
	}
	log.Info().Str("job_id", job.ID).Msg("training job deleted")
	return job, nil
}
