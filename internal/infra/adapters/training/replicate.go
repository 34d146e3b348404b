package training

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/replicate/replicate-go"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/retry"
)

var (
	_ adapter.TrainingProvider = (*ReplicateClient)(nil)
	_ adapter.ImageGenerator   = (*ReplicateClient)(nil)
)

var trainingWebhookEvents = []replicate.WebhookEventType{
	replicate.WebhookEventStart,
	replicate.WebhookEventOutput,
	replicate.WebhookEventLogs,
	replicate.WebhookEventCompleted,
}

// ReplicateClient starts fine-tuning runs and runs predictions against the
// trained versions (or a hosted base model when no version is given).
type ReplicateClient struct {
	api            *replicate.Client
	trainerOwner   string
	trainerModel   string
	trainerVersion string
	destination    string // owner/model
	baseModel      string // owner/model
	policy         retry.Policy
	poll           retry.Policy
}

// NewReplicateClient takes the trainer as owner/model/versions/<id>.
func NewReplicateClient(baseURL, token, trainerVersion, destination, baseModel string, policy retry.Policy) (*ReplicateClient, error) {
	if token == "" {
		return nil, errors.New("replicate: empty api token")
	}
	opts := []replicate.ClientOption{replicate.WithToken(token)}
	if baseURL != "" {
		opts = append(opts, replicate.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	api, err := replicate.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: %w", err)
	}
	c := &ReplicateClient{
		api:         api,
		destination: strings.Trim(destination, "/"),
		baseModel:   strings.Trim(baseModel, "/"),
		policy:      policy,
		poll:        retry.Policy{Timeout: policy.Timeout, MaxRetries: 30, InitialWait: time.Second, MaxWait: 5 * time.Second},
	}
	if parts := strings.Split(strings.Trim(trainerVersion, "/"), "/"); len(parts) == 4 && parts[2] == "versions" {
		c.trainerOwner, c.trainerModel, c.trainerVersion = parts[0], parts[1], parts[3]
	}
	return c, nil
}

// WithPollPolicy overrides how long a pending prediction is polled.
func (c *ReplicateClient) WithPollPolicy(p retry.Policy) *ReplicateClient {
	c.poll = p
	return c
}

func (c *ReplicateClient) Name() string { return "replicate" }

func (c *ReplicateClient) StartTraining(ctx context.Context, req adapter.TrainingRequest) (*adapter.TrainingHandle, error) {
	if c.trainerVersion == "" {
		return nil, fmt.Errorf("replicate: trainer version must be owner/model/versions/id: %w", domain.ErrInvalidArgument)
	}
	dest := req.Destination
	if dest == "" {
		dest = c.destination
	}
	input := replicate.TrainingInput{
		"input_images": req.InputURL,
		"trigger_word": req.TriggerWord,
	}
	var hook *replicate.Webhook
	if req.WebhookURL != "" {
		hook = &replicate.Webhook{URL: req.WebhookURL, Events: trainingWebhookEvents}
	}

	tr, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (*replicate.Training, error) {
		out, err := c.api.CreateTraining(ctx, c.trainerOwner, c.trainerModel, c.trainerVersion, dest, input, hook)
		return out, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("replicate: start training: %w", upstream(err))
	}
	if tr == nil || tr.ID == "" {
		return nil, fmt.Errorf("replicate: start training returned no id: %w", domain.ErrUpstream)
	}
	return &adapter.TrainingHandle{ExternalJobID: tr.ID, Status: string(tr.Status)}, nil
}

// DeleteModel removes one version of a trained model. modelID is the model
// name under the destination owner, or a full owner/name.
func (c *ReplicateClient) DeleteModel(ctx context.Context, modelID, version string) error {
	if modelID == "" || version == "" {
		return domain.ErrInvalidArgument
	}
	owner, name, ok := strings.Cut(modelID, "/")
	if !ok {
		owner, _, _ = strings.Cut(c.destination, "/")
		name = modelID
	}
	if owner == "" {
		return fmt.Errorf("replicate: no owner for model %q: %w", modelID, domain.ErrInvalidArgument)
	}
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		return classify(c.api.DeleteModelVersion(ctx, owner, name, version))
	})
	if err != nil {
		return fmt.Errorf("replicate: delete %s/%s version %s: %w", owner, name, version, upstream(err))
	}
	return nil
}

var errPending = errors.New("prediction still running")

// Generate runs one prediction and waits for it to finish.
func (c *ReplicateClient) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	n := req.Count
	if n <= 0 {
		n = 1
	}
	input := replicate.PredictionInput{
		"prompt":        req.Prompt,
		"num_outputs":   n,
		"output_format": "webp",
	}
	owner, name, _ := strings.Cut(c.baseModel, "/")

	p, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (*replicate.Prediction, error) {
		var (
			out *replicate.Prediction
			err error
		)
		if req.ModelVersion != "" {
			out, err = c.api.CreatePrediction(ctx, req.ModelVersion, input, nil, false)
		} else {
			out, err = c.api.CreatePredictionWithModel(ctx, owner, name, input, nil, false)
		}
		return out, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("replicate: create prediction: %w", upstream(err))
	}

	final, err := retry.DoValue(ctx, c.poll, func(ctx context.Context) (*replicate.Prediction, error) {
		if !pending(p.Status) {
			return p, nil
		}
		next, err := c.api.GetPrediction(ctx, p.ID)
		if err != nil {
			return p, classify(err)
		}
		p = next
		if pending(p.Status) {
			return p, retry.Transient(errPending)
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("replicate: wait prediction: %w", upstream(err))
	}

	switch final.Status {
	case replicate.Succeeded:
	case replicate.Failed, replicate.Canceled:
		return nil, fmt.Errorf("replicate: prediction %s %s: %v: %w", final.ID, final.Status, final.Error, domain.ErrUpstream)
	default:
		return nil, fmt.Errorf("replicate: prediction %s ended as %q: %w", final.ID, final.Status, domain.ErrUpstream)
	}

	urls := outputURLs(final.Output)
	if len(urls) == 0 {
		return nil, fmt.Errorf("replicate: prediction %s returned no images: %w", final.ID, domain.ErrUpstream)
	}
	out := make([]adapter.GeneratedImage, 0, len(urls))
	for _, u := range urls {
		out = append(out, adapter.GeneratedImage{URL: u})
	}
	return out, nil
}

func pending(s replicate.Status) bool {
	return s == replicate.Starting || s == replicate.Processing
}

// outputURLs accepts either a list of URLs or a single URL.
func outputURLs(out replicate.PredictionOutput) []string {
	switch v := out.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		return urls
	}
	return nil
}

// classify marks 5xx and 429 answers retryable; other API errors are final.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *replicate.APIError
	if errors.As(err, &apiErr) && (apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests) {
		return retry.Transient(err)
	}
	return err
}

func upstream(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
}
