package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/domain/ports/repository"
	"ai-image-studio/internal/infra/adapters/storage"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// RateLimiter admits or rejects one request for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type GenerateInput struct {
	Prompt string
	// ModelID is the id of one of the caller's completed training jobs.
	ModelID string
}

type GenerateResult struct {
	Images   []string
	Provider string
}

type GenerationLimits struct {
	MaxPromptTokens  int
	ImagesPerRequest int
}

// GenerationUseCase runs a quota-checked image generation.
type GenerationUseCase interface {
	Generate(ctx context.Context, userID string, in GenerateInput) (*GenerateResult, error)
}

type generationUC struct {
	usage    UsageUseCase
	jobs     repository.TrainingJobRepository
	gen      adapter.ImageGenerator
	rehost   adapter.ImageRehoster
	tokens   adapter.TokenCounter
	limiter  RateLimiter
	limits   GenerationLimits
	rehostTO time.Duration
	log      *zerolog.Logger
}

func NewGenerationUseCase(
	usage UsageUseCase,
	jobs repository.TrainingJobRepository,
	gen adapter.ImageGenerator,
	rehost adapter.ImageRehoster,
	tokens adapter.TokenCounter,
	limiter RateLimiter,
	limits GenerationLimits,
	logger *zerolog.Logger,
) *generationUC {
	if limits.ImagesPerRequest <= 0 {
		limits.ImagesPerRequest = 1
	}
	return &generationUC{
		usage:    usage,
		jobs:     jobs,
		gen:      gen,
		rehost:   rehost,
		tokens:   tokens,
		limiter:  limiter,
		limits:   limits,
		rehostTO: 2 * time.Minute,
		log:      logger,
	}
}

func (g *generationUC) Generate(ctx context.Context, userID string, in GenerateInput) (*GenerateResult, error) {
	defer logging.TraceDuration(g.log, "GenerationUC.Generate")()
	log := logging.With(ctx, g.log)

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidArgument)
	}
	if g.limiter != nil {
		ok, err := g.limiter.Allow(ctx, "rl:"+userID+":"+string(model.ActionGenerateImage))
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			return nil, domain.ErrRateLimited
		}
	}
	if g.tokens != nil && g.limits.MaxPromptTokens > 0 {
		if n := g.tokens.Count(prompt); n > g.limits.MaxPromptTokens {
			metrics.PromptBlocked("too_long")
			return nil, fmt.Errorf("%w: prompt is %d tokens, limit is %d", domain.ErrInvalidArgument, n, g.limits.MaxPromptTokens)
		}
	}

	d, err := g.usage.CheckQuota(ctx, userID, model.ActionGenerateImage)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, &QuotaError{Decision: d}
	}

	version, err := g.trainedVersion(ctx, userID, in.ModelID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	imgs, err := g.gen.Generate(ctx, adapter.ImageRequest{Prompt: prompt, Count: g.limits.ImagesPerRequest, ModelVersion: version})
	metrics.ObserveImageCall(g.gen.Name(), time.Since(started), len(imgs), err == nil)
	if err != nil {
		log.Error().Err(err).Msg("image generation failed")
		return nil, err
	}

	urls := g.rehostAll(ctx, userID, imgs)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no usable images returned: %w", domain.ErrUpstream)
	}
	g.usage.TryIncrement(ctx, userID, model.ActionGenerateImage)
	return &GenerateResult{Images: urls, Provider: g.gen.Name()}, nil
}

// trainedVersion resolves a model id to the provider version of a completed job owned by userID.
func (g *generationUC) trainedVersion(ctx context.Context, userID, modelID string) (string, error) {
	if modelID == "" {
		return "", nil
	}
	job, err := g.jobs.FindByID(ctx, repository.NoTX, modelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrTrainingJobNotFound
		}
		return "", err
	}
	if job.UserID != userID {
		return "", domain.ErrTrainingJobNotFound
	}
	if job.Status != model.TrainingStatusCompleted || job.ModelVersion == "" {
		return "", fmt.Errorf("%w: model %s is not ready", domain.ErrInvalidArgument, modelID)
	}
	return job.ModelVersion, nil
}

// rehostAll copies images into the blob store concurrently. An image that
// cannot be copied keeps its provider URL; inline-only images are dropped.
func (g *generationUC) rehostAll(ctx context.Context, userID string, imgs []adapter.GeneratedImage) []string {
	if g.rehost == nil {
		return providerURLs(imgs)
	}
	ctx, cancel := context.WithTimeout(ctx, g.rehostTO)
	defer cancel()

	out := make([]string, len(imgs))
	now := time.Now().UTC()
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, img := range imgs {
		i, img := i, img
		eg.Go(func() error {
			key := storage.ObjectKey("generated/"+userID, extensionFor(img), now)
			u, err := g.rehost.Rehost(ectx, img, key)
			if err != nil {
				metrics.IncRehostFallback()
				logging.With(ctx, g.log).Warn().Err(err).Int("index", i).Msg("rehost failed, keeping provider url")
				out[i] = img.URL
				return nil
			}
			out[i] = u
			return nil
		})
	}
	_ = eg.Wait()

	urls := out[:0]
	for _, u := range out {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func providerURLs(imgs []adapter.GeneratedImage) []string {
	var out []string
	for _, img := range imgs {
		if img.URL != "" {
			out = append(out, img.URL)
		}
	}
	return out
}

func extensionFor(img adapter.GeneratedImage) string {
	switch {
	case strings.Contains(img.MIMEType, "jpeg"):
		return "image.jpg"
	case strings.Contains(img.MIMEType, "webp"), strings.HasSuffix(img.URL, ".webp"):
		return "image.webp"
	}
	return "image.png"
}
